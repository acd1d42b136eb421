package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"go.uber.org/zap"

	"checkin-service/internal/config"
	"checkin-service/internal/util"
)

// Validator authenticates inbound recommendation webhooks. The provider signs
// each request with HMAC-SHA256 over "{timestamp}.{body}" and sends the
// signature base64-encoded alongside an ISO-8601 timestamp header.
//
// The validator is stateless and safe for concurrent use.
type Validator struct {
	secret  string
	enabled bool
	maxAge  time.Duration
}

func NewValidator(cfg *config.Config) *Validator {
	return &Validator{
		secret:  cfg.Webhook.Secret,
		enabled: cfg.Webhook.EnableSignatureValidation,
		maxAge:  time.Duration(cfg.Webhook.MaxAgeMinutes) * time.Minute,
	}
}

// Validate reports whether the payload is authentic. Every failure mode
// collapses to false; the reason is only logged so a forger learns nothing
// from the response.
func (v *Validator) Validate(payload, signatureB64, timestamp string) bool {
	if !v.enabled {
		util.Debug("Webhook signature validation disabled, accepting request")
		return true
	}

	if v.secret == "" {
		util.Warn("Webhook secret not configured, rejecting request")
		return false
	}

	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		util.Warn("Webhook timestamp malformed", zap.String("timestamp", timestamp))
		return false
	}

	// Stale replays and future clock skew are rejected symmetrically
	age := time.Since(ts)
	if age < 0 {
		age = -age
	}
	if age > v.maxAge {
		util.Warn("Webhook timestamp outside allowed window",
			zap.String("timestamp", timestamp),
			zap.Duration("age", age))
		return false
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(timestamp + "." + payload))
	expected := mac.Sum(nil)

	supplied, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		util.Warn("Webhook signature is not valid base64")
		return false
	}

	if !hmac.Equal(expected, supplied) {
		util.Warn("Webhook signature mismatch")
		return false
	}

	return true
}

// Sign computes the signature for a timestamp and payload. Used by tests and
// by outbound calls that need to authenticate to the same provider.
func (v *Validator) Sign(payload, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(timestamp + "." + payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
