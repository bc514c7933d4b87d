package config

import (
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Hold lifecycle
	Hold HoldConfig

	// Ticket codec / verification
	Ticket TicketConfig

	// Payment adapter
	Payment PaymentConfig

	// Kafka event publishing
	Kafka KafkaConfig

	// JWT configuration (staff/admin endpoints)
	JWT JWTConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	// TTL for short-lived cached reads (availability snapshots)
	CacheTTL time.Duration
}

// HoldConfig drives the hold manager and the expiry sweeper
type HoldConfig struct {
	// TTL is the initial hold lifetime granted on acquire.
	TTL time.Duration
	// RenewWindow is added to expires_at on each renew call.
	RenewWindow time.Duration
	// MaxLifetime caps created_at+MaxLifetime as the hard ceiling a renew
	// can never push past.
	MaxLifetime time.Duration
	// SweepInterval is how often the sweeper reclaims expired holds.
	SweepInterval time.Duration
	// SweepBatchSize bounds how many holds one sweep pass claims.
	SweepBatchSize int
}

// TicketConfig holds the server-side ticket secret and scan policy.
// The key never leaves this process; clients only ever see ciphertext.
type TicketConfig struct {
	// SecretKey is the 32-byte symmetric key, hex encoded in the environment.
	SecretKey []byte
	// MaxScanAge bounds replay: tickets older than this are rejected at the gate.
	MaxScanAge time.Duration
}

// PaymentConfig holds the external payment adapter credentials
type PaymentConfig struct {
	KeyID         string
	WebhookSecret string
}

// KafkaConfig holds event publishing configuration
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	LifecycleTopic string
	AbandonedTopic string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret       string
	JWTExpiresIn time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled          bool          `json:"enabled"`
	WindowDuration   time.Duration `json:"window_duration"`
	DefaultRequests  int           `json:"default_requests"`
	PublicRequests   int           `json:"public_requests"`
	CheckoutRequests int           `json:"checkout_requests"`
	ScanRequests     int           `json:"scan_requests"`
	AdminRequests    int           `json:"admin_requests"`
	HealthRequests   int           `json:"health_requests"`
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		// Database configuration
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "gatepass_db"),
			User:     getEnv("DB_USER", "gatepass_user"),
			Password: getEnv("DB_PASSWORD", "gatepass_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		// Redis configuration
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			CacheTTL: getDurationEnv("REDIS_CACHE_TTL", 30*time.Second),
		},

		// Hold lifecycle
		Hold: HoldConfig{
			TTL:            getDurationEnv("HOLD_TTL", 5*time.Minute),
			RenewWindow:    getDurationEnv("HOLD_RENEW_WINDOW", 5*time.Minute),
			MaxLifetime:    getDurationEnv("HOLD_MAX_LIFETIME", 30*time.Minute),
			SweepInterval:  getDurationEnv("HOLD_SWEEP_INTERVAL", 30*time.Second),
			SweepBatchSize: getIntEnv("HOLD_SWEEP_BATCH_SIZE", 100),
		},

		// Ticket codec
		Ticket: TicketConfig{
			SecretKey:  getKeyEnv("TICKET_SECRET_KEY"),
			MaxScanAge: getDurationEnv("TICKET_MAX_SCAN_AGE", 24*time.Hour),
		},

		// Payment adapter
		Payment: PaymentConfig{
			KeyID:         getEnv("PAYMENT_KEY_ID", ""),
			WebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
		},

		// Kafka
		Kafka: KafkaConfig{
			Enabled:        getBoolEnv("KAFKA_ENABLED", false),
			Brokers:        getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			LifecycleTopic: getEnv("KAFKA_LIFECYCLE_TOPIC", "booking-lifecycle"),
			AbandonedTopic: getEnv("KAFKA_ABANDONED_TOPIC", "checkout-abandoned"),
		},

		// JWT configuration
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "change-me-in-production"),
			JWTExpiresIn: getDurationEnv("JWT_EXPIRES_IN", 12*time.Hour),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:          getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:   getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:  getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:   getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 120),
			CheckoutRequests: getIntEnv("RATE_LIMIT_CHECKOUT_REQUESTS", 20),
			ScanRequests:     getIntEnv("RATE_LIMIT_SCAN_REQUESTS", 120),
			AdminRequests:    getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			HealthRequests:   getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 300),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// getKeyEnv decodes a hex-encoded key from the environment. An empty or
// malformed value returns nil; the ticket service rejects a nil key on boot.
func getKeyEnv(key string) []byte {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	decoded, err := hex.DecodeString(value)
	if err != nil {
		return nil
	}
	return decoded
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
