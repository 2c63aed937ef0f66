// Package config provides configuration loaded from environment variables.
// The only required value is the Firebase service-account blob; everything
// else has a default tuned for a small deployment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

// Config is the full runtime configuration of the relay.
type Config struct {
	// ServiceAccount is the Firebase service-account credential JSON,
	// passed through the environment so no key file ships with the image.
	// Absence or malformation is a fatal startup error.
	ServiceAccount string `env:"FIREBASE_SERVICE_ACCOUNT,required=true" validate:"required,json"`

	// Port for the liveness HTTP endpoint, normally injected by the
	// hosting platform.
	Port int `env:"PORT,default=8080" validate:"gte=1,lte=65535"`

	// GraceWindow widens the subscription's lower time bound below the
	// service start instant.
	GraceWindow time.Duration `env:"GRACE_WINDOW,default=60s" validate:"gt=0"`

	// MaxMessageAge is the processing-staleness bound: admitted messages
	// older than this are dropped instead of notified.
	MaxMessageAge time.Duration `env:"MAX_MESSAGE_AGE,default=90s" validate:"gt=0"`

	// Workers and QueueSize bound the per-event fan-out.
	Workers   int `env:"WORKERS,default=8" validate:"gte=1"`
	QueueSize int `env:"QUEUE_SIZE,default=64" validate:"gte=1"`

	// DispatchRate / DispatchBurst limit multicast calls per second.
	DispatchRate  float64 `env:"DISPATCH_RATE,default=10" validate:"gt=0"`
	DispatchBurst int     `env:"DISPATCH_BURST,default=20" validate:"gte=1"`

	LogLevel string `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
}

// Load reads and validates configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}
	return &cfg, nil
}

// SlogLevel maps the configured level name to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
