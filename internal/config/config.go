// Package config loads the environment surface described in spec.md §6.3.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/lesson-pipeline/internal/logger"
)

type Config struct {
	StoreOperationalDSN string
	StoreAnalyticalURL  string
	StoreAnalyticalKey  string
	RedisURL            string

	WebhookURL     string
	WebhookTimeout time.Duration

	MonitorPollInterval time.Duration
	MonitorBatchSize    int

	WorkerPollInterval time.Duration
	WorkerBatchSize    int
	WorkerMaxRetries   int
	WorkerLeaseSeconds time.Duration

	LLMAPIKey string
	LLMModel  string

	TranslationTargetLanguage string

	QualityMin int

	IdempotencyWindow time.Duration

	HTTPPort string

	ShutdownGrace time.Duration
}

// Load reads every recognized environment variable, loading a local .env
// file first (when present) for development convenience, matching the
// teacher's env-driven startup in cmd/main.go.
func Load(log *logger.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to load .env file", "error", err)
	}

	cfg := &Config{
		StoreOperationalDSN: getEnv("STORE_OPERATIONAL_DSN", "", log),
		StoreAnalyticalURL:  getEnv("STORE_ANALYTICAL_URL", "", log),
		StoreAnalyticalKey:  getEnv("STORE_ANALYTICAL_KEY", "", log),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0", log),

		WebhookURL:     getEnv("WEBHOOK_URL", "", log),
		WebhookTimeout: time.Duration(getEnvAsInt("WEBHOOK_TIMEOUT_SECONDS", 30, log)) * time.Second,

		MonitorPollInterval: time.Duration(getEnvAsInt("MONITOR_POLL_INTERVAL_SECONDS", 60, log)) * time.Second,
		MonitorBatchSize:    getEnvAsInt("MONITOR_BATCH_SIZE", 50, log),

		WorkerPollInterval: time.Duration(getEnvAsInt("WORKER_POLL_INTERVAL_SECONDS", 60, log)) * time.Second,
		WorkerBatchSize:    getEnvAsInt("WORKER_BATCH_SIZE", 10, log),
		WorkerMaxRetries:   getEnvAsInt("WORKER_MAX_RETRIES", 5, log),
		WorkerLeaseSeconds: time.Duration(getEnvAsInt("WORKER_LEASE_SECONDS", 600, log)) * time.Second,

		LLMAPIKey: getEnv("LLM_API_KEY", "", log),
		LLMModel:  getEnv("LLM_MODEL", "", log),

		TranslationTargetLanguage: getEnv("TRANSLATION_TARGET_LANGUAGE", "", log),

		QualityMin: getEnvAsInt("QUALITY_MIN", 60, log),

		IdempotencyWindow: time.Duration(getEnvAsInt("IDEMPOTENCY_WINDOW_SECONDS", 86400, log)) * time.Second,

		HTTPPort: getEnv("PORT", "8080", log),

		ShutdownGrace: time.Duration(getEnvAsInt("SHUTDOWN_GRACE_SECONDS", 10, log)) * time.Second,
	}

	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("WEBHOOK_URL is required")
	}
	if cfg.StoreOperationalDSN == "" {
		return nil, fmt.Errorf("STORE_OPERATIONAL_DSN is required")
	}
	if cfg.StoreAnalyticalURL == "" {
		return nil, fmt.Errorf("STORE_ANALYTICAL_URL is required")
	}
	return cfg, nil
}

// LLMAvailable reports whether the optional LLM capability is configured.
func (c *Config) LLMAvailable() bool {
	return strings.TrimSpace(c.LLMAPIKey) != ""
}

// TranslationEnabled reports whether the optional translation capability is
// configured, per spec.md §6.3 ("absent value disables translation").
func (c *Config) TranslationEnabled() bool {
	return strings.TrimSpace(c.TranslationTargetLanguage) != ""
}

func getEnv(key, defaultVal string, log *logger.Logger) string {
	l := log.With("env_var", key)
	val, ok := os.LookupEnv(key)
	if !ok {
		l.Debug("environment variable not found, using default")
		return defaultVal
	}
	l.Debug("environment variable found")
	return val
}

func getEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	l := log.With("env_var", key)
	valStr, ok := os.LookupEnv(key)
	if !ok {
		l.Debug("environment variable not found, using default", "default", defaultVal)
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		l.Debug("environment variable could not be parsed as int, using default", "provided", valStr, "default", defaultVal)
		return defaultVal
	}
	return i
}
