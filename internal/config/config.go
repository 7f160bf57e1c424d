// Package config loads lldsync configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/roach88/lldsync/internal/querysql"
)

// Config holds all configuration for lldsync.
// Environment variables override YAML values. Command line flags override
// both; that is handled by the CLI.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Engine   EngineConfig   `yaml:"engine"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" env:"LLDSYNC_DB_DRIVER" env-default:"sqlite"`

	// DSN is a file path for SQLite or a connection string for PostgreSQL.
	DSN string `yaml:"dsn" env:"LLDSYNC_DB_DSN" env-default:"lldsync.db"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"LLDSYNC_LOG_LEVEL" env-default:"info"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	// Textfile is written after every run when set.
	Textfile string `yaml:"textfile" env:"LLDSYNC_METRICS_FILE" env-default:""`
}

// EngineConfig holds engine tuning.
type EngineConfig struct {
	// BatchSize caps the rows of one multi-row INSERT and the ids of one DELETE.
	BatchSize int `yaml:"batch_size" env:"LLDSYNC_BATCH_SIZE" env-default:"500"`
}

// Load reads configuration from path, if not empty, with environment
// variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, ok := querysql.ParseDialect(c.Database.Driver); !ok {
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is empty")
	}
	if c.Engine.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Engine.BatchSize)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// Dialect returns the store dialect of the configured driver.
func (c *Config) Dialect() querysql.Dialect {
	d, _ := querysql.ParseDialect(c.Database.Driver)
	return d
}

// LogLevel parses the configured level (debug, info, warn, error).
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return level, nil
}
