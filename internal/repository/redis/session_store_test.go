package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin-service/internal/client"
)

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewSessionStore(&client.RedisClient{Client: rdb}, 30*time.Minute), mr
}

func TestSessionStoreCreateAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Empty(t, created.Payload)

	loaded, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, "203.0.113.7", loaded.IPAddress)
	assert.WithinDuration(t, created.LastActivity, loaded.LastActivity, time.Second)
}

func TestSessionStoreGetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreUpdateRefreshesActivity(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	session, err := store.Create(ctx, "")
	require.NoError(t, err)

	stale := time.Now().UTC().Add(-10 * time.Minute)
	session.LastActivity = stale
	session.Payload = `{"otpSendCount":{"phoneNumber":"+15551234567","count":1,"lastSendTime":"2024-01-01T00:00:00Z"}}`

	require.NoError(t, store.Update(ctx, session))
	assert.True(t, session.LastActivity.After(stale))

	loaded, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Payload, loaded.Payload)
	assert.WithinDuration(t, time.Now().UTC(), loaded.LastActivity, 2*time.Second)
}

func TestSessionStoreDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	session, err := store.Create(ctx, "")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, session.ID))

	_, err = store.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreCorruptRecordTreatedAsMissing(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	session, err := store.Create(ctx, "")
	require.NoError(t, err)

	mr.Set(sessionPrefix+session.ID, "{corrupt")

	_, err = store.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreStorageGuardTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	session, err := store.Create(ctx, "")
	require.NoError(t, err)

	ttl := mr.TTL(sessionPrefix + session.ID)
	assert.Equal(t, time.Hour, ttl)
}
