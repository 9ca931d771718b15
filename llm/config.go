package llm

import (
	"fmt"
	"time"
)

// Config selects and configures a provider. Provider-specific packages read
// the fields they understand.
type Config struct {
	// Provider is the registered provider name (gemini, openai, ollama).
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// MaxAttempts bounds calls per request, the first included.
	MaxAttempts int `mapstructure:"max_attempts"`
	// BreakerFailures consecutive failed requests stop calls to the
	// provider for BreakerCooldown.
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "gemini"
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 2
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown == 0 {
		c.BreakerCooldown = 30 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("llm: temperature %v out of range [0, 2]", c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("llm: max_tokens must not be negative")
	}
	if c.MaxAttempts < 0 || c.BreakerFailures < 0 || c.BreakerCooldown < 0 {
		return fmt.Errorf("llm: max_attempts, breaker_failures and breaker_cooldown must not be negative")
	}
	return nil
}
