package database

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the sqlite connection settings for the durable note store.
type Config struct {
	Enabled bool `mapstructure:"enabled"`

	// DSN is a sqlite file name or URI, e.g. "voicenotes.db" or
	// "file::memory:?cache=shared".
	DSN string `mapstructure:"dsn"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MaxRetries      int           `mapstructure:"max_retries"`

	// SkipMigrations leaves the schema untouched on Start.
	SkipMigrations bool `mapstructure:"skip_migrations"`
	// Seed inserts the sample notes when the table is empty.
	Seed bool `mapstructure:"seed"`

	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	// LogLevel is one of silent, error, warn, info.
	LogLevel string `mapstructure:"log_level"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.DSN == "" {
		c.DSN = "voicenotes.db"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 4
	}
	if c.InMemory() {
		// every connection to a private memory database sees its own copy
		c.MaxOpenConns = 1
	}
	if c.MaxIdleConns <= 0 || c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.SlowQueryThreshold <= 0 {
		c.SlowQueryThreshold = 200 * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// InMemory reports whether DSN names a memory database.
func (c *Config) InMemory() bool {
	return strings.Contains(c.DSN, ":memory:") || strings.Contains(c.DSN, "mode=memory")
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.DSN == "" {
		return fmt.Errorf("database: dsn is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("database: max_idle_conns (%d) must be <= max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	switch strings.ToLower(c.LogLevel) {
	case "silent", "error", "warn", "info":
	default:
		return fmt.Errorf("database: invalid log_level %q", c.LogLevel)
	}
	return nil
}
