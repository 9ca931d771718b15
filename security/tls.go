// Package security builds TLS client configurations for the outbound
// connections to Kafka and Redis.
package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig is the tls section of a client config.
type TLSConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// SkipVerify disables server certificate checks. Test clusters only.
	SkipVerify bool   `mapstructure:"skip_verify"`
	CAFile     string `mapstructure:"ca_file"`
	// CertFile and KeyFile enable mutual TLS.
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
	ServerName string `mapstructure:"server_name"`
}

// Validate checks that the files come in usable combinations.
func (c *TLSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if (c.CertFile != "") != (c.KeyFile != "") {
		return fmt.Errorf("tls: cert_file and key_file must be set together")
	}
	return nil
}

// Build returns nil when TLS is disabled.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if c == nil || !c.Enabled {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	tc := &tls.Config{
		InsecureSkipVerify: c.SkipVerify, //nolint:gosec // opt-in for test clusters
		ServerName:         c.ServerName,
		MinVersion:         tls.VersionTLS12,
	}
	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("tls: read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("tls: no certificates in %s", c.CAFile)
		}
		tc.RootCAs = pool
	}
	if c.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("tls: load client certificate: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}
