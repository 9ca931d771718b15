// Package auth defines how API requests are authenticated and carries the
// authenticated claims through request contexts.
package auth

import (
	"context"
	"fmt"

	"github.com/kbukum/voicenotes/auth/jwt"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// TokenValidatorFunc adapts a function to TokenValidator.
type TokenValidatorFunc func(token string) (*jwt.Claims, error)

func (f TokenValidatorFunc) ValidateToken(token string) (*jwt.Claims, error) { return f(token) }

// Config is the auth section of the application config.
type Config struct {
	Enabled bool       `mapstructure:"enabled"`
	JWT     jwt.Config `mapstructure:"jwt"`
	// SkipPaths bypass authentication. Health endpoints are always skipped.
	SkipPaths []string `mapstructure:"skip_paths"`
}

func (c *Config) ApplyDefaults() { c.JWT.ApplyDefaults() }

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := c.JWT.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

type claimsKey struct{}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFrom returns the claims stored by WithClaims.
func ClaimsFrom(ctx context.Context) (*jwt.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*jwt.Claims)
	return c, ok && c != nil
}
