package server

import (
	"fmt"
	"time"

	"github.com/kbukum/voicenotes/server/middleware"
	"github.com/kbukum/voicenotes/util"
)

// EphemeralPort asks the kernel for any free port. Zero means the default.
const EphemeralPort = -1

// Config holds HTTP server configuration.
type Config struct {
	Host            string                `mapstructure:"host"`
	Port            int                   `mapstructure:"port"`
	ReadTimeout     time.Duration         `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration         `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration         `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration         `mapstructure:"shutdown_timeout"`
	MaxBodySize     string                `mapstructure:"max_body_size"`
	CORS            middleware.CORSConfig `mapstructure:"cors"`
	// AIRequestsPerMinute limits tag and summary generation per caller.
	AIRequestsPerMinute int `mapstructure:"ai_requests_per_minute"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID}
	}
	if c.AIRequestsPerMinute == 0 {
		c.AIRequestsPerMinute = 30
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < EphemeralPort || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, or -1 for any free port (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts must be non-negative")
	}
	if _, err := util.ParseSize(c.MaxBodySize); err != nil {
		return fmt.Errorf("server.max_body_size: %w", err)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	if c.Port == EphemeralPort {
		return c.Host + ":0"
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
