package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"checkin-service/internal/config"
	"checkin-service/internal/util"
)

// VerificationRow is one analytics record of an OTP or webhook outcome.
type VerificationRow struct {
	EventType   string
	SessionID   string
	PhoneMasked string
	Outcome     string
	Attempts    uint8
	OccurredAt  time.Time
}

// AnalyticsClient batches verification outcomes into ClickHouse. Inserts are
// best effort; the hot path never blocks on analytics.
type AnalyticsClient struct {
	conn   driver.Conn
	config *config.ClickhouseConfig
}

func NewAnalyticsClient(cfg *config.Config, logger *zap.Logger) (*AnalyticsClient, error) {
	chConfig := cfg.Clickhouse

	opts := &ch.Options{
		Addr: []string{chConfig.URL},
		Auth: ch.Auth{
			Username: chConfig.Username,
			Password: chConfig.Password,
			Database: chConfig.Database,
		},
		DialTimeout:  10 * time.Second,
		MaxOpenConns: 20,
		MaxIdleConns: 10,
		Compression:  &ch.Compression{Method: ch.CompressionLZ4},
	}

	if strings.HasPrefix(chConfig.URL, "tls://") {
		opts.Addr = []string{strings.TrimPrefix(chConfig.URL, "tls://")}
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	util.Info("ClickHouse analytics client initialized",
		zap.String("database", chConfig.Database))

	return &AnalyticsClient{conn: conn, config: &chConfig}, nil
}

// RecordVerification inserts one outcome row. A nil client is a no-op.
func (c *AnalyticsClient) RecordVerification(ctx context.Context, row VerificationRow) error {
	if c == nil {
		return nil
	}
	if row.OccurredAt.IsZero() {
		row.OccurredAt = time.Now().UTC()
	}

	err := c.conn.AsyncInsert(ctx, `
		INSERT INTO verification_events
			(event_type, session_id, phone_masked, outcome, attempts, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		false,
		row.EventType, row.SessionID, row.PhoneMasked, row.Outcome, row.Attempts, row.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert verification event: %w", err)
	}
	return nil
}

func (c *AnalyticsClient) HealthCheck(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("analytics client not initialized")
	}
	if err := c.conn.Ping(ctx); err != nil {
		return fmt.Errorf("clickhouse ping failed: %w", err)
	}
	return nil
}

func (c *AnalyticsClient) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
