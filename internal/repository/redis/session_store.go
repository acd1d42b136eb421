package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkin-service/internal/client"
	"checkin-service/internal/model"
	"checkin-service/internal/util"
)

const sessionPrefix = "checkin_session:"

var (
	// ErrSessionNotFound indicates no record exists for the given id.
	ErrSessionNotFound = errors.New("session not found")
)

// SessionStore persists check-in sessions as JSON records in Redis.
//
// Liveness is decided by the caller against LastActivity; the Redis TTL set
// here is only a storage guard so abandoned records are eventually reclaimed
// without a sweeper.
type SessionStore struct {
	client  *client.RedisClient
	timeout time.Duration
}

func NewSessionStore(client *client.RedisClient, timeout time.Duration) *SessionStore {
	return &SessionStore{client: client, timeout: timeout}
}

// Create allocates a new session with an empty payload and persists it.
func (s *SessionStore) Create(ctx context.Context, ipAddress string) (*model.Session, error) {
	session := &model.Session{
		ID:           uuid.New().String(),
		Payload:      "",
		IPAddress:    ipAddress,
		LastActivity: time.Now().UTC(),
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	util.Info("Session created",
		zap.String("session_id", session.ID),
		zap.String("ip_address", ipAddress))
	return session, nil
}

// Get loads a session record by id. The caller must check liveness; Get does
// not touch the record.
func (s *SessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	raw, err := s.client.Get(ctx, sessionPrefix+id)
	if err != nil {
		if client.ErrKeyNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var session model.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		util.Error("Corrupt session record, treating as missing",
			zap.String("session_id", id),
			zap.Error(err))
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// Update refreshes the session's last activity and overwrites the record.
func (s *SessionStore) Update(ctx context.Context, session *model.Session) error {
	session.LastActivity = time.Now().UTC()
	if err := s.save(ctx, session); err != nil {
		return err
	}
	util.Debug("Session updated", zap.String("session_id", session.ID))
	return nil
}

// Delete removes the record permanently.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionPrefix+id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	util.Debug("Session deleted", zap.String("session_id", id))
	return nil
}

func (s *SessionStore) save(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}

	// Keep the record around for twice the liveness window so expiry is
	// observed (and logged) at read time rather than silently vanishing.
	if err := s.client.Set(ctx, sessionPrefix+session.ID, string(data), 2*s.timeout); err != nil {
		return fmt.Errorf("failed to persist session %s: %w", session.ID, err)
	}
	return nil
}
