package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/convert"
	"github.com/joho/godotenv"
)

// ErrInvalidInterval is returned when a capture interval range is inverted or non-positive.
var ErrInvalidInterval = errors.New("config: invalid capture interval bounds")

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv    string
	LogLevel  string
	LogFormat string

	// Database
	DatabaseURL string
	SQLitePath  string

	// Redis
	RedisURL string

	// RabbitMQ
	RabbitMQURL string

	// Worker
	WorkerHealthAddr string
	StatsInterval    time.Duration

	// Capture
	ScreenshotMinInterval  time.Duration
	ScreenshotMaxInterval  time.Duration
	RecordingMinInterval   time.Duration
	RecordingMaxInterval   time.Duration
	RecordingDuration      time.Duration
	CaptureStopTimeout     time.Duration
	CaptureCallbackTimeout time.Duration
	CaptureBreakerFailures uint32
	CaptureBreakerTimeout  time.Duration
	CaptureCompanyIDs      []string

	// CaptureReconcileInterval is how often capture loops are compared with
	// running time entries. Zero disables the pass.
	CaptureReconcileInterval time.Duration

	// Consent audit
	ConsentAuditSink            string
	ConsentAuditRetentionDays   int
	ConsentAuditCleanupSchedule string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", defaultSQLitePath()),
		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),
		StatsInterval:    getDurationEnv("STATS_INTERVAL", time.Minute),

		ScreenshotMinInterval:  getDurationEnv("SCREENSHOT_MIN_INTERVAL", 30*time.Second),
		ScreenshotMaxInterval:  getDurationEnv("SCREENSHOT_MAX_INTERVAL", 10*time.Minute),
		RecordingMinInterval:   getDurationEnv("RECORDING_MIN_INTERVAL", time.Minute),
		RecordingMaxInterval:   getDurationEnv("RECORDING_MAX_INTERVAL", 15*time.Minute),
		RecordingDuration:      getDurationEnv("RECORDING_DURATION", 30*time.Second),
		CaptureStopTimeout:     getDurationEnv("CAPTURE_STOP_TIMEOUT", 30*time.Second),
		CaptureCallbackTimeout: getDurationEnv("CAPTURE_CALLBACK_TIMEOUT", 0),
		CaptureBreakerFailures: convert.IntToUint32Clamped(getIntEnv("CAPTURE_BREAKER_FAILURES", 5)),
		CaptureBreakerTimeout:  getDurationEnv("CAPTURE_BREAKER_TIMEOUT", 30*time.Second),
		CaptureCompanyIDs:      getListEnv("CAPTURE_COMPANY_IDS"),

		CaptureReconcileInterval: getDurationEnv("CAPTURE_RECONCILE_INTERVAL", 30*time.Second),

		ConsentAuditSink:            getEnv("CONSENT_AUDIT_SINK", "database"),
		ConsentAuditRetentionDays:   getIntEnv("CONSENT_AUDIT_RETENTION_DAYS", 90),
		ConsentAuditCleanupSchedule: getEnv("CONSENT_AUDIT_CLEANUP_SCHEDULE", "0 3 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants between related settings.
func (c *Config) Validate() error {
	if c.ScreenshotMinInterval <= 0 || c.ScreenshotMaxInterval < c.ScreenshotMinInterval {
		return ErrInvalidInterval
	}
	if c.RecordingMinInterval <= 0 || c.RecordingMaxInterval < c.RecordingMinInterval {
		return ErrInvalidInterval
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// LocalMode reports whether the process runs on SQLite without a broker.
func (c *Config) LocalMode() bool {
	return c.DatabaseURL == ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".vigil", "data.db")
	}
	return filepath.Join(home, ".vigil", "data.db")
}
