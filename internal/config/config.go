// Package config handles analyzer configuration from file and
// environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the settings for one analysis invocation.
type Config struct {
	// Schema is the list of glob patterns for declarative SQL files.
	Schema []string `yaml:"schema"`

	// DefaultSchema is assumed for unqualified relation names.
	DefaultSchema string `yaml:"default_schema"`

	// DatabaseURL enables live metadata lookups when set. Analysis is
	// fully offline without it.
	DatabaseURL string `yaml:"database_url"`

	// LogLevel is one of debug, info, warn, error (default "info").
	LogLevel string `yaml:"log_level"`
}

// Load reads the config file when path is non-empty, then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if url := os.Getenv("PGSHAPE_DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}
	if level := os.Getenv("PGSHAPE_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if cfg.DefaultSchema == "" {
		cfg.DefaultSchema = "public"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if len(cfg.Schema) == 0 {
		cfg.Schema = []string{"*.sql"}
	}
	return cfg, nil
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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
