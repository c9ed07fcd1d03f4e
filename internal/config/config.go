// Package config loads the settings of the feedback CLI from a YAML file,
// a .env file and FEEDBACK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/saferoomai/feedback/internal/platform"
	"github.com/saferoomai/feedback/pkg/core"
)

// Config is the complete CLI configuration.
type Config struct {
	Namespace string      `koanf:"namespace" yaml:"namespace"`
	API       APIConfig   `koanf:"api" yaml:"api"`
	Store     StoreConfig `koanf:"store" yaml:"store"`
	Log       LogConfig   `koanf:"log" yaml:"log"`
}

// APIConfig locates the feedback service.
type APIConfig struct {
	BaseURL         string   `koanf:"base_url" yaml:"base_url"`
	Timeout         Duration `koanf:"timeout" yaml:"timeout"`
	RateLimit       float64  `koanf:"rate_limit" yaml:"rate_limit"`
	Burst           int      `koanf:"burst" yaml:"burst"`
	BulkConcurrency int      `koanf:"bulk_concurrency" yaml:"bulk_concurrency"`
}

// StoreConfig selects and configures the storage adapter.
type StoreConfig struct {
	Adapter       string `koanf:"adapter" yaml:"adapter"`
	Path          string `koanf:"path" yaml:"path"`
	ReadOnly      bool   `koanf:"read_only" yaml:"read_only"`
	DevSafety     *bool  `koanf:"dev_safety" yaml:"dev_safety,omitempty"`
	RedisAddr     string `koanf:"redis_addr" yaml:"redis_addr,omitempty"`
	RedisPassword Secret `koanf:"redis_password" yaml:"redis_password,omitempty"`
	RedisDB       int    `koanf:"redis_db" yaml:"redis_db,omitempty"`
	RedisPrefix   string `koanf:"redis_prefix" yaml:"redis_prefix,omitempty"`
	SQLDriver     string `koanf:"sql_driver" yaml:"sql_driver,omitempty"`
	SQLDSN        Secret `koanf:"sql_dsn" yaml:"sql_dsn,omitempty"`
}

// LogConfig controls the CLI logger.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// Default namespace and API timeout.
const (
	DefaultNamespace = "default"
	DefaultTimeout   = 10 * time.Second
)

func applyDefaults(cfg *Config) {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = Duration(DefaultTimeout)
	}
	if cfg.API.BulkConcurrency == 0 {
		cfg.API.BulkConcurrency = core.DefaultBulkConcurrency
	}
	if cfg.Store.Adapter == "" {
		cfg.Store.Adapter = platform.AdapterFS
	}
	if cfg.Store.SQLDriver == "" {
		cfg.Store.SQLDriver = "sqlite"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if err := core.ValidateNamespace(c.Namespace); err != nil {
		return err
	}

	switch c.Store.Adapter {
	case platform.AdapterFS, platform.AdapterMemory, platform.AdapterRedis:
	case platform.AdapterSQL:
		if c.Store.SQLDSN == "" {
			return errors.New("store.sql_dsn is required for the sql adapter")
		}
	default:
		return fmt.Errorf("unknown store adapter: %s", c.Store.Adapter)
	}

	if c.API.RateLimit < 0 {
		return errors.New("api.rate_limit cannot be negative")
	}
	if c.API.BulkConcurrency < 0 {
		return errors.New("api.bulk_concurrency cannot be negative")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log format: %s", c.Log.Format)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
	return l, nil
}

// Options translates the configuration into coordinator options.
func (c *Config) Options() []platform.Option {
	opts := []platform.Option{
		platform.WithAdapter(c.Store.Adapter),
		platform.WithBaseURL(c.API.BaseURL),
		platform.WithTimeout(c.API.Timeout.Duration()),
		platform.WithRateLimit(c.API.RateLimit, c.API.Burst),
		platform.WithBulkConcurrency(c.API.BulkConcurrency),
	}

	switch c.Store.Adapter {
	case platform.AdapterFS:
		opts = append(opts,
			platform.WithStorePath(c.Store.Path),
			platform.WithReadOnly(c.Store.ReadOnly),
		)
		if c.Store.DevSafety != nil {
			opts = append(opts, platform.WithDevSafety(*c.Store.DevSafety))
		}
	case platform.AdapterRedis:
		opts = append(opts,
			platform.WithRedis(c.Store.RedisAddr, c.Store.RedisPassword.Value(), c.Store.RedisDB),
			platform.WithRedisPrefix(c.Store.RedisPrefix),
		)
	case platform.AdapterSQL:
		opts = append(opts, platform.WithSQL(c.Store.SQLDriver, c.Store.SQLDSN.Value()))
	}
	return opts
}
