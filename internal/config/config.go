package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration
type Config struct {
	ServerPort      string        `env:"PORT" envDefault:"8080"`
	DatabaseType    string        `env:"DB_TYPE" envDefault:"sqlite"`
	DatabasePath    string        `env:"DB_PATH" envDefault:"./ullas.db"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"24h"`
	JWTSecret       string        `env:"JWT_SECRET"`
	StaticFilesPath string        `env:"STATIC_PATH" envDefault:"./static"`

	// Progress persistence: sql, redis or memory
	ProgressBackend string `env:"PROGRESS_BACKEND" envDefault:"sql"`
	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`

	// Question source: local (embedded bank) or remote (quiz API)
	QuestionSource   string        `env:"QUESTION_SOURCE" envDefault:"local"`
	QuestionBankPath string        `env:"QUESTION_BANK_PATH"`
	QuestionCacheTTL time.Duration `env:"QUESTION_CACHE_TTL" envDefault:"0s"`

	RemoteAPIURL       string `env:"REMOTE_API_URL"`
	RemoteClientID     string `env:"REMOTE_CLIENT_ID"`
	RemoteClientSecret string `env:"REMOTE_CLIENT_SECRET"`
	RemoteTokenURL     string `env:"REMOTE_TOKEN_URL"`

	AttemptReporting bool   `env:"ATTEMPT_REPORTING" envDefault:"false"`
	AttemptQueueSize int    `env:"ATTEMPT_QUEUE_SIZE" envDefault:"256"`
	NATSURL          string `env:"NATS_URL"`

	NarrationBackend string `env:"NARRATION_BACKEND" envDefault:"google"`

	DwellTime        time.Duration `env:"DWELL_TIME" envDefault:"3s"`
	MaxLevel         int           `env:"MAX_LEVEL" envDefault:"5"`
	PointsPerCorrect int           `env:"POINTS_PER_CORRECT" envDefault:"10"`
	SessionIdleLimit time.Duration `env:"SESSION_IDLE_LIMIT" envDefault:"30m"`

	AWSRegion    string `env:"AWS_REGION" envDefault:"ap-south-1"`
	SESFromEmail string `env:"SES_FROM_EMAIL"`
	SESFromName  string `env:"SES_FROM_NAME" envDefault:"ULLAS"`
	AppBaseURL   string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	Debug    bool   `env:"DEBUG" envDefault:"false"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3", "":
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for %s", c.DatabaseType))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_TYPE %q", c.DatabaseType))
	}

	switch c.ProgressBackend {
	case "sql", "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported PROGRESS_BACKEND %q", c.ProgressBackend))
	}

	switch c.QuestionSource {
	case "local":
	case "remote":
		if c.RemoteAPIURL == "" {
			errs = append(errs, errors.New("REMOTE_API_URL is required when QUESTION_SOURCE=remote"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported QUESTION_SOURCE %q", c.QuestionSource))
	}

	switch c.NarrationBackend {
	case "google", "silent":
	default:
		errs = append(errs, fmt.Errorf("unsupported NARRATION_BACKEND %q", c.NarrationBackend))
	}

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.MaxLevel < 1 {
		errs = append(errs, errors.New("MAX_LEVEL must be at least 1"))
	}
	if c.PointsPerCorrect < 1 {
		errs = append(errs, errors.New("POINTS_PER_CORRECT must be positive"))
	}
	if c.DwellTime <= 0 {
		errs = append(errs, errors.New("DWELL_TIME must be positive"))
	}
	if c.AttemptQueueSize < 1 {
		errs = append(errs, errors.New("ATTEMPT_QUEUE_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

// RemoteEnabled reports whether a remote quiz API is configured
func (c *Config) RemoteEnabled() bool {
	return c.RemoteAPIURL != ""
}
