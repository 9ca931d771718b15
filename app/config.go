// Package app assembles the voicenotes binaries: the aggregate configuration
// and the wiring of infrastructure components into the note service, the HTTP
// API and the dictation sessions.
package app

import (
	"fmt"
	"slices"

	"github.com/kbukum/voicenotes/auth"
	"github.com/kbukum/voicenotes/config"
	"github.com/kbukum/voicenotes/database"
	"github.com/kbukum/voicenotes/dictation"
	"github.com/kbukum/voicenotes/dictation/deepgram"
	"github.com/kbukum/voicenotes/dictation/relay"
	"github.com/kbukum/voicenotes/kafka"
	"github.com/kbukum/voicenotes/llm"
	"github.com/kbukum/voicenotes/observability"
	"github.com/kbukum/voicenotes/redis"
	"github.com/kbukum/voicenotes/server"
	"github.com/kbukum/voicenotes/storage"
)

// Dictation providers.
const (
	DictationRelay    = "relay"
	DictationDeepgram = "deepgram"
	DictationNone     = "none"
)

// Config is the full configuration of a voicenotes process.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server    server.Config        `mapstructure:"server"`
	Database  database.Config      `mapstructure:"database"`
	Redis     redis.Config         `mapstructure:"redis"`
	Storage   storage.Config       `mapstructure:"storage"`
	Kafka     kafka.Config         `mapstructure:"kafka"`
	Tracing   observability.Config `mapstructure:"tracing"`
	Auth      auth.Config          `mapstructure:"auth"`
	LLM       LLMConfig            `mapstructure:"llm"`
	Dictation DictationConfig      `mapstructure:"dictation"`
	Notes     NotesConfig          `mapstructure:"notes"`
}

// LLMConfig enables AI features. Without it tag generation and summaries
// fail with their domain errors.
type LLMConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	llm.Config `mapstructure:",squash"`
}

func (c *LLMConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if !slices.Contains(llm.Providers(), c.Provider) {
		return fmt.Errorf("llm: provider %q is not one of %v", c.Provider, llm.Providers())
	}
	return nil
}

// DictationConfig selects the speech-recognition capability.
type DictationConfig struct {
	// Provider is relay, deepgram or none. With none every start reports the
	// capability as unavailable.
	Provider                 string `mapstructure:"provider"`
	dictation.SessionsConfig `mapstructure:",squash"`

	Relay    relay.Config    `mapstructure:"relay"`
	Deepgram deepgram.Config `mapstructure:"deepgram"`
}

func (c *DictationConfig) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DictationRelay
	}
	c.SessionsConfig.ApplyDefaults()
	c.Relay.ApplyDefaults()
	c.Deepgram.ApplyDefaults()
}

func (c *DictationConfig) Validate() error {
	switch c.Provider {
	case DictationRelay, DictationDeepgram, DictationNone:
	default:
		return fmt.Errorf("dictation: unknown provider %q", c.Provider)
	}
	if c.TeardownTimeout < 0 {
		return fmt.Errorf("dictation: teardown_timeout must not be negative")
	}
	return nil
}

// Capability builds the configured capability.
func (c *DictationConfig) Capability() dictation.Capability {
	switch c.Provider {
	case DictationDeepgram:
		return deepgram.New(c.Deepgram)
	case DictationRelay:
		cfg := c.Relay
		cfg.Enabled = true
		return relay.New(cfg)
	default:
		return relay.New(relay.Config{})
	}
}

// NotesConfig configures the in-memory repository used when the database is
// disabled.
type NotesConfig struct {
	Seed bool `mapstructure:"seed"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Tracing.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.LLM.ApplyDefaults()
	c.Dictation.ApplyDefaults()
}

// Validate checks every section and reports the first failure.
func (c *Config) Validate() error {
	checks := []struct {
		section  string
		validate func() error
	}{
		{"service", c.ServiceConfig.Validate},
		{"server", c.Server.Validate},
		{"database", c.Database.Validate},
		{"redis", c.Redis.Validate},
		{"storage", c.Storage.Validate},
		{"kafka", c.Kafka.Validate},
		{"tracing", c.Tracing.Validate},
		{"auth", c.Auth.Validate},
		{"llm", c.LLM.Validate},
		{"dictation", c.Dictation.Validate},
	}
	for _, check := range checks {
		if err := check.validate(); err != nil {
			return fmt.Errorf("%s: %w", check.section, err)
		}
	}
	return nil
}
