package kafka

import (
	"fmt"
	"time"

	"github.com/kbukum/voicenotes/security"
)

// DefaultTopic receives note change events.
const DefaultTopic = "voicenotes.note-events"

// Config holds broker connection and producer settings.
type Config struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	// Topic receives note.created, note.updated and note.deleted events.
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`

	TLS security.TLSConfig `mapstructure:"tls"`

	EnableSASL bool `mapstructure:"enable_sasl"`
	// SASLMechanism is PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512.
	SASLMechanism string `mapstructure:"sasl_mechanism"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`

	// Compression is none, gzip, snappy, lz4 or zstd.
	Compression  string        `mapstructure:"compression"`
	Retries      int           `mapstructure:"retries"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`

	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	MetadataTTL time.Duration `mapstructure:"metadata_ttl"`
}

func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.ClientID == "" {
		c.ClientID = "voicenotes"
	}
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchTimeout <= 0 {
		// change events are low volume; do not hold them for a full batch
		c.BatchTimeout = 50 * time.Millisecond
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Second
	}
	if c.MetadataTTL <= 0 {
		c.MetadataTTL = 6 * time.Second
	}
	if c.EnableSASL && c.SASLMechanism == "" {
		c.SASLMechanism = "PLAIN"
	}
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka: brokers are required")
	}
	if c.Topic == "" {
		return fmt.Errorf("kafka: topic is required")
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	if c.EnableSASL {
		switch c.SASLMechanism {
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return fmt.Errorf("kafka: unsupported SASL mechanism %q", c.SASLMechanism)
		}
		if c.Username == "" {
			return fmt.Errorf("kafka: SASL username is required")
		}
	}
	switch c.Compression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		return fmt.Errorf("kafka: unsupported compression %q", c.Compression)
	}
	switch c.RequiredAcks {
	case -1, 1:
	default:
		return fmt.Errorf("kafka: required_acks must be -1 or 1")
	}
	return nil
}
