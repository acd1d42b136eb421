package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"checkin-service/internal/client"
	"checkin-service/internal/config"
	"checkin-service/internal/model"
	"checkin-service/internal/repository/redis"
	"checkin-service/internal/util"
)

var (
	// ErrSessionNotFound means no record exists for the presented id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired means the record existed but its inactivity window
	// had elapsed; it has been deleted.
	ErrSessionExpired = errors.New("session expired")
)

// SessionService resolves and maintains check-in sessions. Expiry is enforced
// lazily: a dead session is deleted the moment it is observed, there is no
// background sweeper.
type SessionService struct {
	store   *redis.SessionStore
	audit   *client.AuditProducer
	timeout time.Duration
}

func NewSessionService(store *redis.SessionStore, audit *client.AuditProducer, cfg *config.Config) *SessionService {
	return &SessionService{
		store:   store,
		audit:   audit,
		timeout: cfg.Session.Timeout,
	}
}

// Create allocates a fresh session with an empty payload.
func (s *SessionService) Create(ctx context.Context, ipAddress string) (*model.Session, error) {
	session, err := s.store.Create(ctx, ipAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.audit.Publish(ctx, client.SecurityEvent{
		Type:      client.EventSessionCreated,
		SessionID: session.ID,
		Timestamp: time.Now().UTC(),
	})

	util.Info("Session created",
		zap.String("session_id", session.ID),
		zap.String("ip", ipAddress))

	return session, nil
}

// GetOrReject loads a session and enforces liveness. A live session is
// touched, so every successful read extends its life. Absence and expiry are
// both unusable to the caller; the distinction matters only for logs.
func (s *SessionService) GetOrReject(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, redis.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.IsExpired(s.timeout) {
		if err := s.store.Delete(ctx, id); err != nil {
			util.Warn("Failed to delete expired session",
				zap.String("session_id", id),
				zap.Error(err))
		}

		s.audit.Publish(ctx, client.SecurityEvent{
			Type:      client.EventSessionExpired,
			SessionID: id,
			Timestamp: time.Now().UTC(),
		})

		util.Info("Session expired", zap.String("session_id", id))
		return nil, ErrSessionExpired
	}

	if err := s.store.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	return session, nil
}

// Save persists payload changes and refreshes the activity timestamp.
func (s *SessionService) Save(ctx context.Context, session *model.Session) error {
	return s.store.Update(ctx, session)
}

// Delete removes a session permanently.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
