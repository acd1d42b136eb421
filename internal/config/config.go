package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full application configuration, loaded once at startup.
type Config struct {
	Environment string
	Server      ServerConfig
	Logging     LoggingConfig
	Redis       RedisConfig
	Scylla      ScyllaConfig
	Bucketing   BucketingConfig
	Kafka       KafkaConfig
	Elastic     ElasticConfig
	Clickhouse  ClickhouseConfig
	KMS         KMSConfig
	Session     SessionConfig
	Otp         OtpConfig
	Webhook     WebhookConfig
	Sms         SmsConfig
}

type ServerConfig struct {
	Port         int
	TLSPort      int
	EnableTLS    bool
	AutoCert     bool
	AutoCertDir  string
	Domain       string
	Email        string
	CertFile     string
	KeyFile      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type BucketingConfig struct {
	CustomerBuckets int
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

type ElasticConfig struct {
	URL          string
	Username     string
	Password     string
	VehicleIndex string
}

type ClickhouseConfig struct {
	URL      string
	Username string
	Password string
	Database string
}

type KMSConfig struct {
	Enabled bool
	Region  string
	KeyID   string
}

// SessionConfig controls the check-in session store.
type SessionConfig struct {
	// Timeout is the inactivity window after which a session is dead.
	Timeout time.Duration
}

// OtpConfig controls the verification engine.
type OtpConfig struct {
	ExpiryMinutes       int
	MaxAttempts         int
	BaseCooldownMinutes int
}

// WebhookConfig controls inbound webhook authentication.
type WebhookConfig struct {
	Secret                    string
	EnableSignatureValidation bool
	MaxAgeMinutes             int
}

// SmsConfig holds the outbound SMS gateway settings.
type SmsConfig struct {
	BaseURL      string
	IdentityKey  string
	FunctionsKey string
	Enabled      bool
}

// LoadConfig reads configuration from the environment. A .env file, when
// present, is loaded first so local development does not need exported vars.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8080),
			TLSPort:      getEnvInt("SERVER_TLS_PORT", 8443),
			EnableTLS:    getEnvBool("SERVER_ENABLE_TLS", false),
			AutoCert:     getEnvBool("SERVER_AUTOCERT", false),
			AutoCertDir:  getEnv("SERVER_AUTOCERT_DIR", "/var/cache/autocert"),
			Domain:       getEnv("SERVER_DOMAIN", ""),
			Email:        getEnv("SERVER_ACME_EMAIL", ""),
			CertFile:     getEnv("SERVER_CERT_FILE", ""),
			KeyFile:      getEnv("SERVER_KEY_FILE", ""),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
		},
		Scylla: ScyllaConfig{
			Nodes:    getEnvList("SCYLLA_NODES", "localhost:9042"),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "checkin"),
			Username: getEnv("SCYLLA_USERNAME", ""),
			Password: getEnv("SCYLLA_PASSWORD", ""),
		},
		Bucketing: BucketingConfig{
			CustomerBuckets: getEnvInt("CUSTOMER_BUCKETS", 64),
		},
		Kafka: KafkaConfig{
			Brokers:    getEnvList("KAFKA_BROKERS", "localhost:9092"),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "checkin-security-events"),
		},
		Elastic: ElasticConfig{
			URL:          getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			Username:     getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:     getEnv("ELASTICSEARCH_PASSWORD", ""),
			VehicleIndex: getEnv("ELASTICSEARCH_VEHICLE_INDEX", "vehicles"),
		},
		Clickhouse: ClickhouseConfig{
			URL:      getEnv("CLICKHOUSE_URL", "localhost:9000"),
			Username: getEnv("CLICKHOUSE_USERNAME", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			Database: getEnv("CLICKHOUSE_DATABASE", "checkin_analytics"),
		},
		KMS: KMSConfig{
			Enabled: getEnvBool("KMS_ENABLED", false),
			Region:  getEnv("KMS_REGION", "us-east-1"),
			KeyID:   getEnv("KMS_KEY_ID", ""),
		},
		Session: SessionConfig{
			Timeout: getEnvDuration("SESSION_TIMEOUT", 30*time.Minute),
		},
		Otp: OtpConfig{
			ExpiryMinutes:       getEnvInt("OTP_EXPIRY_MINUTES", 5),
			MaxAttempts:         getEnvInt("OTP_MAX_ATTEMPTS", 3),
			BaseCooldownMinutes: getEnvInt("OTP_BASE_COOLDOWN_MINUTES", 2),
		},
		Webhook: WebhookConfig{
			Secret:                    getEnv("WEBHOOK_SECRET", ""),
			EnableSignatureValidation: getEnvBool("WEBHOOK_SIGNATURE_VALIDATION", true),
			MaxAgeMinutes:             getEnvInt("WEBHOOK_MAX_AGE_MINUTES", 5),
		},
		Sms: SmsConfig{
			BaseURL:      getEnv("SMS_BASE_URL", ""),
			IdentityKey:  getEnv("SMS_IDENTITY_KEY", ""),
			FunctionsKey: getEnv("SMS_FUNCTIONS_KEY", ""),
			Enabled:      getEnvBool("SMS_ENABLED", true),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
