package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"checkin-service/internal/bucketing"
	"checkin-service/internal/client"
	"checkin-service/internal/config"
	"checkin-service/internal/encryption"
	"checkin-service/internal/repository/redis"
	"checkin-service/internal/repository/scylla"
	"checkin-service/internal/service"
	"checkin-service/internal/tls"
	"checkin-service/internal/util"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"golang.org/x/sync/errgroup"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Clients
	redisClient     *client.RedisClient
	scyllaClient    *scylla.ScyllaClient
	auditProducer   *client.AuditProducer
	vehicleIndex    *client.VehicleIndex
	analyticsClient *client.AnalyticsClient
	smsClient       *client.SmsClient

	// Managers
	encryptionManager *encryption.EncryptionManager
	bucketingManager  *bucketing.BucketingManager

	// Repositories
	sessionStore       *redis.SessionStore
	customerRepository *scylla.CustomerRepository
	checkInRepository  *scylla.CheckInRepository

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		tlsConfig := &tls.TLSConfig{
			EnableTLS:   cfg.Server.EnableTLS,
			AutoCert:    cfg.Server.AutoCert,
			Domain:      cfg.Server.Domain,
			CertFile:    cfg.Server.CertFile,
			KeyFile:     cfg.Server.KeyFile,
			AutoCertDir: cfg.Server.AutoCertDir,
			Email:       cfg.Server.Email,
			Environment: cfg.Environment,
		}
		factory.tlsManager = tls.NewTLSManager(tlsConfig)
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	factory.initializeManagers()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
	)

	return factory, nil
}

// initializeClients initializes all external service clients with health checks
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// Redis
	if c, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = c
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			util.Info("Redis client initialized and healthy")
		}
	}

	// ScyllaDB
	if c, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = c
		if err := f.scyllaClient.HealthCheck(); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		} else {
			util.Info("ScyllaDB client initialized and healthy")
		}
	}

	// Kafka audit trail; optional, requests proceed without it
	if producer, err := client.NewAuditProducer(f.config, util.Get()); err != nil {
		util.Warn("Audit producer initialization failed - proceeding without Kafka", util.ErrorField(err))
	} else {
		f.auditProducer = producer
		util.Info("Audit producer initialized")
	}

	// Elasticsearch vehicle index
	if c, err := client.NewVehicleIndex(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
	} else {
		f.vehicleIndex = c
		if err := f.vehicleIndex.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch health check: %w", err))
		} else {
			util.Info("Vehicle index initialized and healthy")
		}
	}

	// ClickHouse analytics; optional
	if c, err := client.NewAnalyticsClient(f.config, util.Get()); err != nil {
		util.Warn("Analytics client initialization failed - proceeding without ClickHouse", util.ErrorField(err))
	} else {
		f.analyticsClient = c
		if err := f.analyticsClient.HealthCheck(ctx); err != nil {
			util.Warn("ClickHouse health check failed", util.ErrorField(err))
		} else {
			util.Info("Analytics client initialized and healthy")
		}
	}

	f.smsClient = client.NewSmsClient(f.config, util.Get())

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// initializeManagers initializes encryption and bucketing managers
func (f *Factory) initializeManagers() {
	var kmsClient *kms.Client
	if f.config.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(f.config.KMS.Region))
		if err != nil {
			util.Fatal("Failed to load AWS config for KMS", util.ErrorField(err))
		}
		kmsClient = kms.NewFromConfig(awsCfg)
	}

	f.encryptionManager = encryption.NewEncryptionManager(f.config, kmsClient)
	f.bucketingManager = bucketing.NewBucketingManager(f.config)

	util.Info("Managers initialized successfully",
		util.Bool("encryption_initialized", f.encryptionManager != nil),
		util.Bool("bucketing_initialized", f.bucketingManager != nil),
	)
}

func (f *Factory) SessionStore() *redis.SessionStore {
	if f.sessionStore == nil {
		f.sessionStore = redis.NewSessionStore(f.redisClient, f.config.Session.Timeout)
	}
	return f.sessionStore
}

func (f *Factory) CustomerRepository() *scylla.CustomerRepository {
	if f.customerRepository == nil {
		f.customerRepository = scylla.NewCustomerRepository(
			f.scyllaClient,
			f.encryptionManager,
			f.bucketingManager,
		)
	}
	return f.customerRepository
}

func (f *Factory) CheckInRepository() *scylla.CheckInRepository {
	if f.checkInRepository == nil {
		f.checkInRepository = scylla.NewCheckInRepository(f.scyllaClient)
	}
	return f.checkInRepository
}

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		f.serviceFactory = service.NewServiceFactory(
			f.config,
			f.SessionStore(),
			f.CheckInRepository(),
			f.CustomerRepository(),
			f.vehicleIndex,
			f.auditProducer,
			f.analyticsClient,
		)
	}
	return f.serviceFactory
}

// HealthCheck probes every backing service concurrently.
func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	var mu sync.Mutex
	healthErrors := make(map[string]error)
	record := func(name string, err error) {
		mu.Lock()
		healthErrors[name] = err
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if f.redisClient == nil {
			record("redis", fmt.Errorf("redis client not initialized"))
		} else if err := f.redisClient.HealthCheck(gctx); err != nil {
			record("redis", err)
		}
		return nil
	})

	g.Go(func() error {
		if f.scyllaClient == nil {
			record("scylla", fmt.Errorf("scylla client not initialized"))
		} else if err := f.scyllaClient.HealthCheck(); err != nil {
			record("scylla", err)
		}
		return nil
	})

	g.Go(func() error {
		if f.vehicleIndex == nil {
			record("elasticsearch", fmt.Errorf("vehicle index not initialized"))
		} else if err := f.vehicleIndex.HealthCheck(gctx); err != nil {
			record("elasticsearch", err)
		}
		return nil
	})

	g.Go(func() error {
		if f.analyticsClient != nil {
			if err := f.analyticsClient.HealthCheck(gctx); err != nil {
				record("clickhouse", err)
			}
		}
		return nil
	})

	g.Go(func() error {
		if f.auditProducer != nil {
			if err := f.auditProducer.HealthCheck(gctx); err != nil {
				record("kafka", err)
			}
		}
		return nil
	})

	g.Wait()

	return healthErrors
}

func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	// audit and analytics are best-effort
	delete(healthErrors, "kafka")
	delete(healthErrors, "clickhouse")
	return len(healthErrors) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.analyticsClient != nil {
			if err := f.analyticsClient.Close(); err != nil {
				util.Error("Failed to close analytics client", util.ErrorField(err))
			} else {
				util.Info("Analytics client closed")
			}
		}

		if f.vehicleIndex != nil {
			f.vehicleIndex.Close()
			util.Info("Vehicle index closed")
		}

		if f.auditProducer != nil {
			if err := f.auditProducer.Close(); err != nil {
				util.Error("Failed to close audit producer", util.ErrorField(err))
			} else {
				util.Info("Audit producer closed")
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
			util.Info("ScyllaDB client closed")
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		if f.encryptionManager != nil {
			f.encryptionManager.ClearCache()
			util.Info("Encryption manager cache cleared")
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

func (f *Factory) SmsClient() *client.SmsClient {
	return f.smsClient
}

func (f *Factory) AuditProducer() *client.AuditProducer {
	return f.auditProducer
}
