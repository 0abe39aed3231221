// Package config loads chronotree settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Backends lists the accepted backend names.
var Backends = []string{BackendSQLite, BackendBadger, BackendMemory}

// Formats lists the accepted output formats.
var Formats = []string{"text", "json"}

// Config holds settings shared by every command. Command-line flags take
// precedence over these values.
type Config struct {
	Backend  string `env:"CHRONOTREE_BACKEND"   envDefault:"sqlite"`
	DB       string `env:"CHRONOTREE_DB"        envDefault:"chronotree.db"`
	Replica  string `env:"CHRONOTREE_REPLICA"   envDefault:"main"`
	LogLevel string `env:"CHRONOTREE_LOG_LEVEL" envDefault:"warn"`
	Format   string `env:"CHRONOTREE_FORMAT"    envDefault:"text"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	if !slices.Contains(Backends, c.Backend) {
		return fmt.Errorf("invalid backend %q: must be one of %v", c.Backend, Backends)
	}
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, Formats)
	}
	if c.Backend != BackendMemory && c.DB == "" {
		return fmt.Errorf("%s backend needs a database path", c.Backend)
	}
	if c.Replica == "" {
		return fmt.Errorf("replica name is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
