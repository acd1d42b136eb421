package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"checkin-service/internal/client"
	"checkin-service/internal/config"
	"checkin-service/internal/model"
	"checkin-service/internal/util"
)

var (
	// ErrNoActiveSession means the caller attempted verification without a
	// live session.
	ErrNoActiveSession = errors.New("no active session")
)

// CooldownActiveError rejects a generate call made before the phone's
// cooldown window has elapsed.
type CooldownActiveError struct {
	SecondsRemaining int
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("otp cooldown active, retry in %d seconds", e.SecondsRemaining)
}

// DuplicateRequestError rejects a generate call while a still-valid code is
// outstanding for the same phone. Re-issuing would invalidate a code the
// user may already have received.
type DuplicateRequestError struct {
	SecondsRemaining int
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("otp already sent, valid for another %d seconds", e.SecondsRemaining)
}

// OtpService is the passcode verification engine. All state lives in the
// session payload; the engine itself holds no per-phone state and takes the
// session explicitly on every call.
//
// Concurrent calls against the same session race on the payload
// read-modify-write; last write wins. Sequential kiosk flows never hit this.
type OtpService struct {
	sessions  *SessionService
	audit     *client.AuditProducer
	analytics *client.AnalyticsClient

	expiry       time.Duration
	maxAttempts  int
	baseCooldown time.Duration
}

func NewOtpService(sessions *SessionService, audit *client.AuditProducer, analytics *client.AnalyticsClient, cfg *config.Config) *OtpService {
	return &OtpService{
		sessions:     sessions,
		audit:        audit,
		analytics:    analytics,
		expiry:       time.Duration(cfg.Otp.ExpiryMinutes) * time.Minute,
		maxAttempts:  cfg.Otp.MaxAttempts,
		baseCooldown: time.Duration(cfg.Otp.BaseCooldownMinutes) * time.Minute,
	}
}

// Generate issues a new 6-digit code for phoneNumber and records it in the
// session payload. The code is returned to the caller for SMS dispatch; the
// engine does not send anything itself.
func (o *OtpService) Generate(ctx context.Context, session *model.Session, phoneNumber string) (string, error) {
	if session == nil {
		return "", ErrNoActiveSession
	}

	now := time.Now().UTC()
	payload := model.DecodePayload(session.Payload)

	// Cooldown gate first: an active cooldown for this phone blocks the send
	// regardless of challenge state.
	if cd := payload.OtpCooldown; cd != nil && cd.PhoneNumber == phoneNumber && now.Before(cd.CooldownUntil) {
		remaining := int(math.Ceil(cd.CooldownUntil.Sub(now).Seconds()))
		util.Warn("OTP generate rejected, cooldown active",
			zap.String("session_id", session.ID),
			zap.String("phone", util.MaskPhoneNumber(phoneNumber)),
			zap.Int("seconds_remaining", remaining))
		return "", &CooldownActiveError{SecondsRemaining: remaining}
	}

	// Duplicate gate: a still-valid challenge for the same phone is not
	// re-issued.
	if ch := payload.OtpData; ch != nil && ch.PhoneNumber == phoneNumber && now.Before(ch.OtpExpiry) {
		remaining := int(math.Ceil(ch.OtpExpiry.Sub(now).Seconds()))
		util.Warn("OTP generate rejected, code still outstanding",
			zap.String("session_id", session.ID),
			zap.String("phone", util.MaskPhoneNumber(phoneNumber)),
			zap.Int("seconds_remaining", remaining))
		return "", &DuplicateRequestError{SecondsRemaining: remaining}
	}

	sendCount := 0
	if sc := payload.OtpSendCount; sc != nil && sc.PhoneNumber == phoneNumber {
		sendCount = sc.Count
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate otp code: %w", err)
	}

	payload.OtpData = &model.OtpChallenge{
		PhoneNumber:  phoneNumber,
		OtpCode:      code,
		OtpGenerated: now,
		OtpExpiry:    now.Add(o.expiry),
		Attempts:     0,
	}

	sendCount++
	payload.OtpSendCount = &model.OtpSendCount{
		PhoneNumber:  phoneNumber,
		Count:        sendCount,
		LastSendTime: now,
	}

	// Cooldown doubles with every send: 2, 4, 8, 16... minutes. No cap.
	cooldown := o.baseCooldown * time.Duration(1<<(sendCount-1))
	payload.OtpCooldown = &model.OtpCooldown{
		PhoneNumber:   phoneNumber,
		CooldownUntil: now.Add(cooldown),
		SendCount:     sendCount,
	}

	if err := o.savePayload(ctx, session, payload); err != nil {
		return "", err
	}

	o.audit.Publish(ctx, client.SecurityEvent{
		Type:        client.EventOtpGenerated,
		SessionID:   session.ID,
		PhoneMasked: util.MaskPhoneNumber(phoneNumber),
		Timestamp:   now,
	})
	o.recordOutcome(ctx, client.EventOtpGenerated, session.ID, phoneNumber, "issued", 0)

	util.Info("OTP generated",
		zap.String("session_id", session.ID),
		zap.String("phone", util.MaskPhoneNumber(phoneNumber)),
		zap.Int("send_count", sendCount),
		zap.Duration("cooldown", cooldown))

	return code, nil
}

// Validate checks a supplied code against the session's challenge. Any
// failure returns false without detail; attempts are charged before the
// comparison so a correct guess on the fourth try still fails.
func (o *OtpService) Validate(ctx context.Context, session *model.Session, phoneNumber, code string) (bool, error) {
	if session == nil {
		return false, ErrNoActiveSession
	}

	now := time.Now().UTC()
	payload := model.DecodePayload(session.Payload)

	challenge := payload.OtpData
	if challenge == nil {
		return false, nil
	}

	if challenge.PhoneNumber != phoneNumber {
		util.Warn("OTP validate for wrong phone",
			zap.String("session_id", session.ID),
			zap.String("phone", util.MaskPhoneNumber(phoneNumber)))
		return false, nil
	}

	if now.After(challenge.OtpExpiry) {
		payload.OtpData = nil
		if err := o.savePayload(ctx, session, payload); err != nil {
			return false, err
		}
		o.recordOutcome(ctx, client.EventOtpFailed, session.ID, phoneNumber, "expired", challenge.Attempts)
		util.Info("OTP expired on validate",
			zap.String("session_id", session.ID),
			zap.String("phone", util.MaskPhoneNumber(phoneNumber)))
		return false, nil
	}

	if challenge.Attempts >= o.maxAttempts {
		o.audit.Publish(ctx, client.SecurityEvent{
			Type:        client.EventOtpExhausted,
			SessionID:   session.ID,
			PhoneMasked: util.MaskPhoneNumber(phoneNumber),
			Timestamp:   now,
		})
		o.recordOutcome(ctx, client.EventOtpExhausted, session.ID, phoneNumber, "exhausted", challenge.Attempts)
		return false, nil
	}

	// The attempt is charged before the comparison
	challenge.Attempts++
	if err := o.savePayload(ctx, session, payload); err != nil {
		return false, err
	}

	if challenge.OtpCode != code {
		o.audit.Publish(ctx, client.SecurityEvent{
			Type:        client.EventOtpFailed,
			SessionID:   session.ID,
			PhoneMasked: util.MaskPhoneNumber(phoneNumber),
			Timestamp:   now,
		})
		o.recordOutcome(ctx, client.EventOtpFailed, session.ID, phoneNumber, "mismatch", challenge.Attempts)
		util.Warn("OTP mismatch",
			zap.String("session_id", session.ID),
			zap.String("phone", util.MaskPhoneNumber(phoneNumber)),
			zap.Int("attempts", challenge.Attempts))
		return false, nil
	}

	payload.OtpData = nil
	if err := o.savePayload(ctx, session, payload); err != nil {
		return false, err
	}

	o.audit.Publish(ctx, client.SecurityEvent{
		Type:        client.EventOtpVerified,
		SessionID:   session.ID,
		PhoneMasked: util.MaskPhoneNumber(phoneNumber),
		Timestamp:   now,
	})
	o.recordOutcome(ctx, client.EventOtpVerified, session.ID, phoneNumber, "verified", challenge.Attempts)

	util.Info("OTP verified",
		zap.String("session_id", session.ID),
		zap.String("phone", util.MaskPhoneNumber(phoneNumber)))

	return true, nil
}

// RemainingAttempts returns how many validation attempts are left for a live
// matching challenge, or nil when none exists.
func (o *OtpService) RemainingAttempts(session *model.Session, phoneNumber string) *int {
	if session == nil {
		return nil
	}

	challenge := model.DecodePayload(session.Payload).OtpData
	if challenge == nil || challenge.PhoneNumber != phoneNumber {
		return nil
	}
	if time.Now().UTC().After(challenge.OtpExpiry) {
		return nil
	}

	remaining := o.maxAttempts - challenge.Attempts
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// IsInCooldown reports whether generate would currently be rejected for this
// phone. Pure read, no mutation.
func (o *OtpService) IsInCooldown(session *model.Session, phoneNumber string) bool {
	return o.CooldownRemainingSeconds(session, phoneNumber) > 0
}

// CooldownRemainingSeconds returns the seconds until the phone may request
// another code, or 0 when no cooldown applies.
func (o *OtpService) CooldownRemainingSeconds(session *model.Session, phoneNumber string) int {
	if session == nil {
		return 0
	}

	cd := model.DecodePayload(session.Payload).OtpCooldown
	if cd == nil || cd.PhoneNumber != phoneNumber {
		return 0
	}

	now := time.Now().UTC()
	if !now.Before(cd.CooldownUntil) {
		return 0
	}
	return int(math.Ceil(cd.CooldownUntil.Sub(now).Seconds()))
}

// Clear drops only the challenge slot; cooldown and send count survive so
// re-sends stay throttled.
func (o *OtpService) Clear(ctx context.Context, session *model.Session, phoneNumber string) error {
	if session == nil {
		return ErrNoActiveSession
	}

	payload := model.DecodePayload(session.Payload)
	if payload.OtpData == nil || payload.OtpData.PhoneNumber != phoneNumber {
		return nil
	}

	payload.OtpData = nil
	return o.savePayload(ctx, session, payload)
}

func (o *OtpService) savePayload(ctx context.Context, session *model.Session, payload *model.SessionPayload) error {
	encoded, err := payload.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode session payload: %w", err)
	}
	session.Payload = encoded

	if err := o.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to persist session payload: %w", err)
	}
	return nil
}

func (o *OtpService) recordOutcome(ctx context.Context, eventType, sessionID, phoneNumber, outcome string, attempts int) {
	if o.analytics == nil {
		return
	}
	if err := o.analytics.RecordVerification(ctx, client.VerificationRow{
		EventType:   eventType,
		SessionID:   sessionID,
		PhoneMasked: util.MaskPhoneNumber(phoneNumber),
		Outcome:     outcome,
		Attempts:    uint8(attempts),
		OccurredAt:  time.Now().UTC(),
	}); err != nil {
		util.Debug("Failed to record verification analytics", zap.Error(err))
	}
}

// generateCode draws a uniform 32-bit value and reduces it to six digits.
// The modulus leaves a slight bias toward the low end of the range; accepted,
// the codes are single-use and attempt-limited.
func generateCode() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	v := binary.BigEndian.Uint32(buf[:])
	return fmt.Sprintf("%06d", v%900000+100000), nil
}
