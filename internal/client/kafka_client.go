package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"checkin-service/internal/config"
	"checkin-service/internal/util"
)

// SecurityEvent is one audit record published to the security-event stream:
// OTP issuance/verification outcomes and webhook authentication failures.
type SecurityEvent struct {
	Type        string    `json:"type"`
	SessionID   string    `json:"sessionId,omitempty"`
	PhoneMasked string    `json:"phoneMasked,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Event types emitted by the verification and webhook layers.
const (
	EventOtpGenerated    = "otp.generated"
	EventOtpVerified     = "otp.verified"
	EventOtpFailed       = "otp.failed"
	EventOtpExhausted    = "otp.exhausted"
	EventWebhookAccepted = "webhook.accepted"
	EventWebhookRejected = "webhook.rejected"
	EventSessionCreated  = "session.created"
	EventSessionExpired  = "session.expired"
)

// AuditProducer publishes security events to Kafka. All publish failures are
// logged and swallowed; the audit trail must never fail a user request.
type AuditProducer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewAuditProducer(cfg *config.Config, logger *zap.Logger) (*AuditProducer, error) {
	kafkaConfig := cfg.Kafka

	writer := &kafka.Writer{
		Addr:         kafka.TCP(kafkaConfig.Brokers...),
		Topic:        kafkaConfig.AuditTopic,
		Balancer:     &kafka.LeastBytes{},
		MaxAttempts:  3,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("failed to write audit events",
					zap.Error(err),
					zap.Int("message_count", len(messages)),
				)
			}
		},
	}

	util.Info("Kafka audit producer initialized",
		zap.Strings("brokers", kafkaConfig.Brokers),
		zap.String("topic", kafkaConfig.AuditTopic))

	return &AuditProducer{writer: writer, logger: logger}, nil
}

// Publish emits one security event. A nil producer is a no-op so callers do
// not need to guard for environments without Kafka.
func (p *AuditProducer) Publish(ctx context.Context, event SecurityEvent) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal audit event", zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.Type),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("failed to publish audit event",
			zap.String("type", event.Type),
			zap.Error(err))
	}
}

// HealthCheck verifies broker connectivity with a short dial.
func (p *AuditProducer) HealthCheck(ctx context.Context) error {
	if p == nil {
		return fmt.Errorf("audit producer not initialized")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.writer.Addr.String())
	if err != nil {
		return fmt.Errorf("kafka dial failed: %w", err)
	}
	return conn.Close()
}

func (p *AuditProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
