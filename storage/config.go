package storage

import (
	stderrors "errors"
	"fmt"
)

const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

const (
	DefaultBasePath = "./data/exports"
	DefaultRegion   = "us-east-1"
)

// Config selects and configures the export backend.
type Config struct {
	Enabled bool `mapstructure:"enabled"`
	// Provider is "local" or "s3".
	Provider string `mapstructure:"provider"`

	// BasePath is the root directory of the local backend.
	BasePath string `mapstructure:"base_path"`
	// PublicURL, when set, is the prefix for object URLs instead of
	// file:// (local) or the bucket endpoint (s3).
	PublicURL string `mapstructure:"public_url"`

	Bucket         string `mapstructure:"bucket"`
	Region         string `mapstructure:"region"`
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
}

func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderLocal
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Provider {
	case ProviderLocal:
		if c.BasePath == "" {
			return stderrors.New("storage: base_path is required for local provider")
		}
	case ProviderS3:
		var errs []error
		if c.Bucket == "" {
			errs = append(errs, stderrors.New("bucket is required"))
		}
		if c.Region == "" {
			errs = append(errs, stderrors.New("region is required"))
		}
		if (c.AccessKey == "") != (c.SecretKey == "") {
			errs = append(errs, stderrors.New("access_key and secret_key must be set together"))
		}
		if len(errs) > 0 {
			return fmt.Errorf("storage: invalid s3 config: %w", stderrors.Join(errs...))
		}
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
	return nil
}
