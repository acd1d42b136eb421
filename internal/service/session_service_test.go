package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin-service/internal/client"
	"checkin-service/internal/model"
	"checkin-service/internal/repository/redis"
)

const sessionKeyPrefix = "checkin_session:"

func newTestSessions(t *testing.T) (*SessionService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := newTestConfig()
	store := redis.NewSessionStore(&client.RedisClient{Client: rdb}, cfg.Session.Timeout)
	return NewSessionService(store, nil, cfg), mr
}

// backdateSession rewrites a persisted record with an aged activity stamp.
func backdateSession(t *testing.T, mr *miniredis.Miniredis, session *model.Session, age time.Duration) {
	t.Helper()

	aged := *session
	aged.LastActivity = time.Now().UTC().Add(-age)

	raw, err := json.Marshal(&aged)
	require.NoError(t, err)
	require.NoError(t, mr.Set(sessionKeyPrefix+session.ID, string(raw)))
}

func TestGetOrRejectMissing(t *testing.T) {
	sessions, _ := newTestSessions(t)

	_, err := sessions.GetOrReject(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGetOrRejectTouchesLiveSession(t *testing.T) {
	sessions, mr := newTestSessions(t)
	ctx := context.Background()

	created, err := sessions.Create(ctx, "203.0.113.7")
	require.NoError(t, err)

	// Age the record close to, but inside, the liveness window
	backdateSession(t, mr, created, 29*time.Minute)

	loaded, err := sessions.GetOrReject(ctx, created.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), loaded.LastActivity, 2*time.Second)

	// The touch persisted: a second read still succeeds
	_, err = sessions.GetOrReject(ctx, created.ID)
	require.NoError(t, err)
}

func TestGetOrRejectDeletesExpired(t *testing.T) {
	sessions, mr := newTestSessions(t)
	ctx := context.Background()

	created, err := sessions.Create(ctx, "")
	require.NoError(t, err)

	backdateSession(t, mr, created, 31*time.Minute)

	_, err = sessions.GetOrReject(ctx, created.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)

	// Dead sessions are deleted when observed, never resurrected
	_, err = sessions.GetOrReject(ctx, created.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
