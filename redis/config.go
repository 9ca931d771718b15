package redis

import (
	"fmt"
	"time"

	"github.com/kbukum/voicenotes/security"
)

// Config holds Redis connection configuration.
type Config struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// KeyPrefix namespaces every key written by this service.
	KeyPrefix string `mapstructure:"key_prefix"`

	TLS security.TLSConfig `mapstructure:"tls"`
	// TagCacheTTL bounds how long generated tags are reused. 0 keeps them
	// until evicted.
	TagCacheTTL time.Duration `mapstructure:"tag_cache_ttl"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "voicenotes"
	}
	if c.TagCacheTTL == 0 {
		c.TagCacheTTL = 24 * time.Hour
	}
}

// Validate checks required fields when enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be > 0")
	}
	if c.TagCacheTTL < 0 {
		return fmt.Errorf("tag_cache_ttl must not be negative")
	}
	return c.TLS.Validate()
}
