package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin-service/internal/config"
)

const testSecret = "whsec_test_0123456789"

func newTestValidator(secret string, enabled bool, maxAgeMinutes int) *Validator {
	cfg := &config.Config{}
	cfg.Webhook.Secret = secret
	cfg.Webhook.EnableSignatureValidation = enabled
	cfg.Webhook.MaxAgeMinutes = maxAgeMinutes
	return NewValidator(cfg)
}

func signRaw(secret, payload, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateAcceptsCorrectSignature(t *testing.T) {
	v := newTestValidator(testSecret, true, 5)
	payload := `{"licensePlate":"ABC1234"}`
	ts := time.Now().UTC().Format(time.RFC3339)

	assert.True(t, v.Validate(payload, signRaw(testSecret, payload, ts), ts))
}

func TestSignIsDeterministic(t *testing.T) {
	v := newTestValidator(testSecret, true, 5)
	payload := `{"id":"abc"}`
	ts := "2024-01-01T00:00:00Z"

	first := v.Sign(payload, ts)
	second := v.Sign(payload, ts)
	require.Equal(t, first, second)
	assert.Equal(t, signRaw(testSecret, payload, ts), first)
}

func TestValidateRejectsTamperedPayload(t *testing.T) {
	v := newTestValidator(testSecret, true, 5)
	payload := `{"licensePlate":"ABC1234"}`
	ts := time.Now().UTC().Format(time.RFC3339)
	sig := signRaw(testSecret, payload, ts)

	tampered := `{"licensePlate":"ABC1235"}`
	assert.False(t, v.Validate(tampered, sig, ts))
}

func TestValidateRejectsTamperedTimestamp(t *testing.T) {
	v := newTestValidator(testSecret, true, 5)
	payload := `{"id":"abc"}`
	ts := time.Now().UTC().Format(time.RFC3339)
	sig := signRaw(testSecret, payload, ts)

	other := time.Now().UTC().Add(time.Second).Format(time.RFC3339)
	assert.False(t, v.Validate(payload, sig, other))
}

func TestValidateReplayWindow(t *testing.T) {
	v := newTestValidator(testSecret, true, 5)
	payload := `{"id":"abc"}`

	fresh := time.Now().UTC().Add(-4 * time.Minute).Format(time.RFC3339)
	assert.True(t, v.Validate(payload, signRaw(testSecret, payload, fresh), fresh))

	stale := time.Now().UTC().Add(-6 * time.Minute).Format(time.RFC3339)
	assert.False(t, v.Validate(payload, signRaw(testSecret, payload, stale), stale))

	// future skew is rejected symmetrically
	future := time.Now().UTC().Add(6 * time.Minute).Format(time.RFC3339)
	assert.False(t, v.Validate(payload, signRaw(testSecret, payload, future), future))
}

func TestValidateMalformedInputs(t *testing.T) {
	v := newTestValidator(testSecret, true, 5)
	payload := `{"id":"abc"}`
	ts := time.Now().UTC().Format(time.RFC3339)

	t.Run("malformed timestamp", func(t *testing.T) {
		assert.False(t, v.Validate(payload, signRaw(testSecret, payload, "yesterday"), "yesterday"))
	})

	t.Run("signature not base64", func(t *testing.T) {
		assert.False(t, v.Validate(payload, "!!!not-base64!!!", ts))
	})

	t.Run("empty signature", func(t *testing.T) {
		assert.False(t, v.Validate(payload, "", ts))
	})
}

func TestValidateDisabledAcceptsAnything(t *testing.T) {
	v := newTestValidator("", false, 5)
	assert.True(t, v.Validate("whatever", "garbage", "not-a-time"))
}

func TestValidateMissingSecretFailsClosed(t *testing.T) {
	v := newTestValidator("", true, 5)
	payload := `{"id":"abc"}`
	ts := time.Now().UTC().Format(time.RFC3339)

	assert.False(t, v.Validate(payload, signRaw("", payload, ts), ts))
}
