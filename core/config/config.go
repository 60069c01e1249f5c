package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel      OTelConfig
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
	Env       string
	Port      string

	// BackendsFile points at the YAML backend roster.
	BackendsFile   string
	MetricsEnabled bool
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type PipelineConfig struct {
	CallTimeout      time.Duration // per backend call
	MaxParallel      int           // concurrent backend slots per run
	MaxQuestionChars int
}

type RateLimitConfig struct {
	RedisURL          string
	RequestsPerMinute int
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeCLI    ServiceType = "cli"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the API server
//   - .env.cli for the command line tool
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("OPTIMIZER_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:            getEnv("OPTIMIZER_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		BackendsFile:   getEnv("BACKENDS_FILE", "config/backends.yaml"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "optimizer-relay"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Pipeline: PipelineConfig{
			CallTimeout:      getEnvDuration("CALL_TIMEOUT", 60*time.Second),
			MaxParallel:      getEnvInt("MAX_PARALLEL_BACKENDS", 4),
			MaxQuestionChars: getEnvInt("MAX_QUESTION_CHARS", 4000),
		},
		RateLimit: RateLimitConfig{
			RedisURL:          getEnv("REDIS_URL", ""),
			RequestsPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 20),
		},
	}

	if cfg.Pipeline.CallTimeout <= 0 {
		return Config{}, fmt.Errorf("CALL_TIMEOUT must be positive, got %s", cfg.Pipeline.CallTimeout)
	}
	if cfg.Pipeline.MaxParallel < 1 {
		return Config{}, fmt.Errorf("MAX_PARALLEL_BACKENDS must be at least 1, got %d", cfg.Pipeline.MaxParallel)
	}
	if cfg.BackendsFile == "" {
		return Config{}, fmt.Errorf("BACKENDS_FILE is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerMinute > 0
}

func (c RateLimitConfig) UsesRedis() bool {
	return c.Enabled() && c.RedisURL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
