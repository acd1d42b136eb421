package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin-service/internal/client"
	"checkin-service/internal/config"
	"checkin-service/internal/model"
	"checkin-service/internal/repository/redis"
)

const testPhone = "+15550000000"

var sixDigits = regexp.MustCompile(`^[1-9]\d{5}$`)

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Session.Timeout = 30 * time.Minute
	cfg.Otp.ExpiryMinutes = 5
	cfg.Otp.MaxAttempts = 3
	cfg.Otp.BaseCooldownMinutes = 2
	return cfg
}

func newTestEngine(t *testing.T) (*OtpService, *SessionService) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := newTestConfig()
	store := redis.NewSessionStore(&client.RedisClient{Client: rdb}, cfg.Session.Timeout)
	sessions := NewSessionService(store, nil, cfg)
	return NewOtpService(sessions, nil, nil, cfg), sessions
}

func newLiveSession(t *testing.T, sessions *SessionService) *model.Session {
	t.Helper()
	session, err := sessions.Create(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	return session
}

// rewritePayload mutates the persisted payload, used to fast-forward clocks
// without sleeping in tests.
func rewritePayload(t *testing.T, sessions *SessionService, session *model.Session, mutate func(*model.SessionPayload)) {
	t.Helper()
	payload := model.DecodePayload(session.Payload)
	mutate(payload)
	encoded, err := payload.Encode()
	require.NoError(t, err)
	session.Payload = encoded
	require.NoError(t, sessions.Save(context.Background(), session))
}

func TestGenerateReturnsSixDigitCode(t *testing.T) {
	engine, sessions := newTestEngine(t)
	session := newLiveSession(t, sessions)

	code, err := engine.Generate(context.Background(), session, testPhone)
	require.NoError(t, err)
	assert.Regexp(t, sixDigits, code)

	payload := model.DecodePayload(session.Payload)
	require.NotNil(t, payload.OtpData)
	assert.Equal(t, testPhone, payload.OtpData.PhoneNumber)
	assert.Equal(t, code, payload.OtpData.OtpCode)
	assert.Equal(t, 0, payload.OtpData.Attempts)
	require.NotNil(t, payload.OtpSendCount)
	assert.Equal(t, 1, payload.OtpSendCount.Count)
}

func TestGenerateWithoutSession(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Generate(context.Background(), nil, testPhone)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestGenerateDuplicateAndCooldownGates(t *testing.T) {
	engine, sessions := newTestEngine(t)
	session := newLiveSession(t, sessions)
	ctx := context.Background()

	_, err := engine.Generate(ctx, session, testPhone)
	require.NoError(t, err)

	// Immediate retry hits the cooldown gate first
	_, err = engine.Generate(ctx, session, testPhone)
	var cooldownErr *CooldownActiveError
	require.ErrorAs(t, err, &cooldownErr)
	assert.InDelta(t, 120, cooldownErr.SecondsRemaining, 2)

	// With the cooldown elapsed but the challenge still live, the duplicate
	// gate takes over
	rewritePayload(t, sessions, session, func(p *model.SessionPayload) {
		p.OtpCooldown.CooldownUntil = time.Now().UTC().Add(-time.Second)
	})

	_, err = engine.Generate(ctx, session, testPhone)
	var dupErr *DuplicateRequestError
	require.ErrorAs(t, err, &dupErr)
	assert.Greater(t, dupErr.SecondsRemaining, 0)
	assert.LessOrEqual(t, dupErr.SecondsRemaining, 300)
}

func TestCooldownGrowsGeometrically(t *testing.T) {
	engine, sessions := newTestEngine(t)
	session := newLiveSession(t, sessions)
	ctx := context.Background()

	expected := []time.Duration{2 * time.Minute, 4 * time.Minute, 8 * time.Minute, 16 * time.Minute}

	for i, want := range expected {
		_, err := engine.Generate(ctx, session, testPhone)
		require.NoError(t, err, "send %d", i+1)

		payload := model.DecodePayload(session.Payload)
		require.NotNil(t, payload.OtpCooldown)
		assert.Equal(t, i+1, payload.OtpCooldown.SendCount)
		assert.WithinDuration(t,
			time.Now().UTC().Add(want),
			payload.OtpCooldown.CooldownUntil,
			2*time.Second,
			"send %d", i+1)

		// Expire both gates so the next send goes through
		rewritePayload(t, sessions, session, func(p *model.SessionPayload) {
			p.OtpCooldown.CooldownUntil = time.Now().UTC().Add(-time.Second)
			p.OtpData.OtpExpiry = time.Now().UTC().Add(-time.Second)
		})
	}
}

func TestValidateHappyPathAndReplay(t *testing.T) {
	engine, sessions := newTestEngine(t)
	session := newLiveSession(t, sessions)
	ctx := context.Background()

	code, err := engine.Generate(ctx, session, testPhone)
	require.NoError(t, err)

	ok, err := engine.Validate(ctx, session, testPhone, code)
	require.NoError(t, err)
	assert.True(t, ok)

	// The challenge was consumed; replaying the same code fails
	ok, err = engine.Validate(ctx, session, testPhone, code)
	require.NoError(t, err)
	assert.False(t, ok)

	// Cooldown and send count survive the consumed challenge
	payload := model.DecodePayload(session.Payload)
	assert.Nil(t, payload.OtpData)
	assert.NotNil(t, payload.OtpCooldown)
	assert.NotNil(t, payload.OtpSendCount)
}

func TestValidateNoChallengeReturnsFalse(t *testing.T) {
	engine, sessions := newTestEngine(t)
	session := newLiveSession(t, sessions)

	ok, err := engine.Validate(context.Background(), session, testPhone, "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateWrongPhoneReturnsFalse(t *testing.T) {
	engine, sessions := newTestEngine(t)
	session := newLiveSession(t, sessions)
	ctx := context.Background()

	code, err := engine.Generate(ctx, session, testPhone)
	require.NoError(t, err)

	ok, err := engine.Validate(ctx, session, "+15559999999", code)
	require.NoError(t, err)
	assert.False(t, ok)

	// The mismatch did not charge an attempt against the real challenge
	payload := model.DecodePayload(session.Payload)
	require.NotNil(t, payload.OtpData)
	assert.Equal(t, 0, payload.OtpData.Attempts)
}

func TestAttemptMonotonicityAndLockout(t *testing.T) {
	engine, sessions := newTestEngine(t)
	session := newLiveSession(t, sessions)
	ctx := context.Background()

	code, err := engine.Generate(ctx, session, testPhone)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		ok, err := engine.Validate(ctx, session, testPhone, "000000")
		require.NoError(t, err)
		assert.False(t, ok)

		payload := model.DecodePayload(session.Payload)
		require.NotNil(t, payload.OtpData)
		assert.Equal(t, i, payload.OtpData.Attempts)
	}

	// Exhausted: even the correct code is refused now
	ok, err := engine.Validate(ctx, session, testPhone, code)
	require.NoError(t, err)
	assert.False(t, ok)

	remaining := engine.RemainingAttempts(session, testPhone)
	require.NotNil(t, remaining)
	assert.Equal(t, 0, *remaining)
}

func TestValidateExpiredChallengeIsIdempotent(t *testing.T) {
	engine, sessions := newTestEngine(t)
	session := newLiveSession(t, sessions)
	ctx := context.Background()

	code, err := engine.Generate(ctx, session, testPhone)
	require.NoError(t, err)

	rewritePayload(t, sessions, session, func(p *model.SessionPayload) {
		p.OtpData.OtpExpiry = time.Now().UTC().Add(-time.Second)
	})

	for i := 0; i < 3; i++ {
		ok, err := engine.Validate(ctx, session, testPhone, code)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, model.DecodePayload(session.Payload).OtpData)
	}
}

func TestCooldownReads(t *testing.T) {
	engine, sessions := newTestEngine(t)
	session := newLiveSession(t, sessions)
	ctx := context.Background()

	assert.False(t, engine.IsInCooldown(session, testPhone))
	assert.Zero(t, engine.CooldownRemainingSeconds(session, testPhone))

	_, err := engine.Generate(ctx, session, testPhone)
	require.NoError(t, err)

	assert.True(t, engine.IsInCooldown(session, testPhone))
	assert.InDelta(t, 120, engine.CooldownRemainingSeconds(session, testPhone), 2)

	// A different phone is not throttled by this cooldown
	assert.False(t, engine.IsInCooldown(session, "+15559999999"))
}

func TestClearRemovesOnlyChallenge(t *testing.T) {
	engine, sessions := newTestEngine(t)
	session := newLiveSession(t, sessions)
	ctx := context.Background()

	_, err := engine.Generate(ctx, session, testPhone)
	require.NoError(t, err)

	require.NoError(t, engine.Clear(ctx, session, testPhone))

	payload := model.DecodePayload(session.Payload)
	assert.Nil(t, payload.OtpData)
	assert.NotNil(t, payload.OtpCooldown)
	assert.NotNil(t, payload.OtpSendCount)
}

func TestRemainingAttemptsNilWithoutChallenge(t *testing.T) {
	engine, sessions := newTestEngine(t)
	session := newLiveSession(t, sessions)

	assert.Nil(t, engine.RemainingAttempts(session, testPhone))
}
