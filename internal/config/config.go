// Package config loads process settings from the environment and named
// rule presets from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/MJE43/onering-odds/internal/engine"
)

// EnvPrefix is prepended to every variable name read by Load.
const EnvPrefix = "ONERING_"

// DefaultDBPath is used when ONERING_DB_PATH is unset. Setting it to the
// empty string disables persistence.
const DefaultDBPath = "onering-odds.db"

// Config holds the process settings shared by the server and the CLI.
type Config struct {
	SampleSize     int           `env:"SAMPLE_SIZE" envDefault:"200000"`
	Seed           int64         `env:"SEED" envDefault:"676732"`
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:"127.0.0.1:8078"`
	DBPath         string        `env:"DB_PATH"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogDev         bool          `env:"LOG_DEV" envDefault:"false"`
	Workers        int           `env:"WORKERS" envDefault:"0"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

// Load reads Config from ONERING_* environment variables and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	// envDefault also replaces an empty value, so the default is applied here.
	if _, ok := os.LookupEnv(EnvPrefix + "DB_PATH"); !ok {
		cfg.DBPath = DefaultDBPath
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be corrected silently.
func (c Config) Validate() error {
	if c.SampleSize <= 0 {
		return fmt.Errorf("%w: sample size must be positive, got %d", engine.ErrInvalidArgument, c.SampleSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", engine.ErrInvalidArgument, c.Workers)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive, got %s", engine.ErrInvalidArgument, c.RequestTimeout)
	}
	return nil
}

// PersistenceEnabled reports whether a database path is configured.
func (c Config) PersistenceEnabled() bool {
	return c.DBPath != ""
}
