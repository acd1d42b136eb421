package encryption

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin-service/internal/config"
)

func newLocalManager() *EncryptionManager {
	cfg := &config.Config{}
	cfg.KMS.Enabled = false
	return NewEncryptionManager(cfg, nil)
}

func TestEncryptDecryptPhoneRoundTrip(t *testing.T) {
	em := newLocalManager()
	ctx := context.Background()

	blob, keyID, err := em.EncryptPhone(ctx, "+15551234567")
	require.NoError(t, err)
	require.NotEmpty(t, blob)
	require.NotEmpty(t, keyID)

	phone, err := em.DecryptPhone(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", phone)
}

func TestEncryptPhoneProducesFreshEnvelopes(t *testing.T) {
	em := newLocalManager()
	ctx := context.Background()

	first, _, err := em.EncryptPhone(ctx, "+15551234567")
	require.NoError(t, err)
	second, _, err := em.EncryptPhone(ctx, "+15551234567")
	require.NoError(t, err)

	// Each field gets its own data key and nonce
	assert.NotEqual(t, first, second)
}

func TestDecryptPhoneRejectsGarbage(t *testing.T) {
	em := newLocalManager()
	ctx := context.Background()

	_, err := em.DecryptPhone(ctx, []byte("not an envelope"))
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptPhoneSurvivesCacheClear(t *testing.T) {
	em := newLocalManager()
	ctx := context.Background()

	blob, _, err := em.EncryptPhone(ctx, "+15559876543")
	require.NoError(t, err)

	em.ClearCache()

	phone, err := em.DecryptPhone(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, "+15559876543", phone)
}
