package scylla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"checkin-service/internal/config"
	"checkin-service/internal/util"
)

// PreparedStatements holds prepared statements that are actually used by the repositories
type PreparedStatements struct {
	CreateCustomer        *gocql.Query
	CreatePhoneToCustomer *gocql.Query
	GetCustomerByID       *gocql.Query
	GetCustomerByPhone    *gocql.Query
	UpdateCustomerName    *gocql.Query
	CreateCheckIn         *gocql.Query
	GetCheckInByID        *gocql.Query
	LinkCheckInCustomer   *gocql.Query
	UpdateCheckInMileage  *gocql.Query
}

type ScyllaClient struct {
	Session      *gocql.Session
	config       *config.ScyllaConfig
	Prepared     *PreparedStatements
	prepareMutex sync.RWMutex
	isPrepared   bool
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.MaxPreparedStmts = 1000
	cluster.MaxRoutingKeyInfo = 1000
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if !cfg.IsDevelopment() {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 "/root/certs/ca.pem",
			CertPath:               "/root/certs/server.pem",
			KeyPath:                "/root/certs/server.key",
			EnableHostVerification: true,
		}
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}

	if err := client.prepareStatements(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	util.Info("ScyllaDB client initialized with prepared statements",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) prepareStatements() error {
	s.prepareMutex.Lock()
	defer s.prepareMutex.Unlock()

	if s.isPrepared {
		return nil
	}

	prepared := &PreparedStatements{}

	prepared.CreateCustomer = s.Session.Query(`
    INSERT INTO customers (
        customer_bucket, customer_id, phone_hash, phone_encrypted, phone_key_id,
        first_name, last_name, is_fleet, created_at, updated_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.CreatePhoneToCustomer = s.Session.Query(`
        INSERT INTO phone_to_customer (phone_hash, customer_bucket, customer_id, created_at)
        VALUES (?, ?, ?, ?)`)

	prepared.GetCustomerByID = s.Session.Query(`
        SELECT customer_bucket, customer_id, phone_hash, phone_encrypted, phone_key_id,
            first_name, last_name, is_fleet, created_at, updated_at
        FROM customers WHERE customer_bucket = ? AND customer_id = ?`)

	prepared.GetCustomerByPhone = s.Session.Query(`
        SELECT customer_bucket, customer_id FROM phone_to_customer WHERE phone_hash = ?`)

	prepared.UpdateCustomerName = s.Session.Query(`
        UPDATE customers SET first_name = ?, last_name = ?, updated_at = ?
        WHERE customer_bucket = ? AND customer_id = ?`)

	prepared.CreateCheckIn = s.Session.Query(`
    INSERT INTO checkins (
        checkin_id, customer_id, vehicle_id, store_id, license_plate, state_code,
        actual_mileage, estimated_mileage, created_at, updated_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.GetCheckInByID = s.Session.Query(`
        SELECT checkin_id, customer_id, vehicle_id, store_id, license_plate, state_code,
            actual_mileage, estimated_mileage, created_at, updated_at
        FROM checkins WHERE checkin_id = ?`)

	prepared.LinkCheckInCustomer = s.Session.Query(`
        UPDATE checkins SET customer_id = ?, updated_at = ? WHERE checkin_id = ?`)

	prepared.UpdateCheckInMileage = s.Session.Query(`
        UPDATE checkins SET actual_mileage = ?, updated_at = ? WHERE checkin_id = ?`)

	s.Prepared = prepared
	s.isPrepared = true

	util.Info("Selected ScyllaDB prepared statements created successfully")
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Query(stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...)
}

func (s *ScyllaClient) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

func (s *ScyllaClient) ExecuteWithRetry(query *gocql.Query, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := query.Exec(); err != nil {
			lastErr = err
			if i < maxRetries {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}

func (s *ScyllaClient) ScanWithRetry(query *gocql.Query, dest ...interface{}) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		if err := query.Scan(dest...); err != nil {
			lastErr = err
			if i < 2 {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}
