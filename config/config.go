// Package config loads the process configuration from environment variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Config is read once at process start.
type Config struct {
	SupabaseURL       string `env:"SUPABASE_URL"`
	SupabaseAnonKey   string `env:"SUPABASE_ANON_KEY"`
	SupabaseJWTSecret string `env:"SUPABASE_JWT_SECRET"`
	DatabaseURL       string `env:"DATABASE_URL"`
	AutoMigrate       bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	AIAgentBaseURL string        `env:"AI_AGENT_BASE_URL"`
	AIAgentTimeout time.Duration `env:"AI_AGENT_TIMEOUT" envDefault:"60s"`

	Port       int    `env:"PORT" envDefault:"3001"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"http://localhost:3000"`

	InventoryCacheTTL time.Duration `env:"INVENTORY_CACHE_TTL" envDefault:"60s"`

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"json"`
	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate implements validation.Validatable. Missing backing-store credentials are
// errors; a missing AI agent URL is not.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SupabaseURL, validation.Required, is.URL),
		validation.Field(&c.SupabaseAnonKey, validation.Required),
		validation.Field(&c.DatabaseURL, validation.Required),
		validation.Field(&c.AIAgentBaseURL, is.URL),
		validation.Field(&c.AIAgentTimeout, validation.Min(time.Second)),
		validation.Field(&c.Port, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.InventoryCacheTTL, validation.Min(time.Second)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("json", "text")),
	)
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
