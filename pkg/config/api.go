package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment        string        `env:"APP_ENV" envDefault:"development"`
	Addr               string        `env:"API_ADDR" envDefault:":4000"`
	DatabaseURL        string        `env:"DATABASE_URL" envDefault:"postgres://progresso:progresso@db:5432/progresso?sslmode=disable"`
	StoreDriver        string        `env:"STORE_DRIVER" envDefault:"postgres"`
	JWTSecret          string        `env:"JWT_SECRET" envDefault:"supersecuresecret"`
	JWTIssuer          string        `env:"JWT_ISSUER" envDefault:"progresso"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	RateLimitRedisAddr string        `env:"RATE_LIMIT_REDIS_ADDR"`
	RateLimitRedisPass string        `env:"RATE_LIMIT_REDIS_PASSWORD"`
	RateLimitRedisDB   int           `env:"RATE_LIMIT_REDIS_DB" envDefault:"0"`
	OTelEndpoint       string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	EventBuffer        int           `env:"EVENT_BUFFER" envDefault:"256"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	BootstrapAdminID   string        `env:"BOOTSTRAP_ADMIN_ID" envDefault:"admin"`
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() (APIConfig, error) {
	var cfg APIConfig
	if err := ParseEnv(&cfg); err != nil {
		return APIConfig{}, err
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return APIConfig{}, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return APIConfig{}, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

// TokenConfig holds configuration for the token issuing tool.
type TokenConfig struct {
	JWTSecret string `env:"JWT_SECRET" envDefault:"supersecuresecret"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"progresso"`
}

// LoadTokenConfig constructs a TokenConfig from environment variables.
func LoadTokenConfig() (TokenConfig, error) {
	var cfg TokenConfig
	if err := ParseEnv(&cfg); err != nil {
		return TokenConfig{}, err
	}
	return cfg, nil
}

// MigrateConfig holds configuration for the migration tool.
type MigrateConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"postgres://progresso:progresso@db:5432/progresso?sslmode=disable"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadMigrateConfig constructs a MigrateConfig from environment variables.
func LoadMigrateConfig() (MigrateConfig, error) {
	var cfg MigrateConfig
	if err := ParseEnv(&cfg); err != nil {
		return MigrateConfig{}, err
	}
	return cfg, nil
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
