// Package jwt issues and verifies the HMAC-signed bearer tokens that guard
// the HTTP API.
//
//	svc, err := jwt.NewService(cfg)
//	token, err := svc.Issue("alice", []string{"notes:write"})
//	claims, err := svc.Parse(token)
package jwt

import (
	"errors"
	"fmt"
	"slices"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod names a supported HMAC algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

// Config configures token signing and verification.
type Config struct {
	Secret   string        `mapstructure:"secret"`
	Method   SigningMethod `mapstructure:"method"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"ttl"`
	// Leeway tolerates clock skew when checking exp and nbf.
	Leeway time.Duration `mapstructure:"leeway"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.Issuer == "" {
		c.Issuer = "voicenotes"
	}
	if c.TTL == 0 {
		c.TTL = time.Hour
	}
}

// Validate checks the signing configuration.
func (c *Config) Validate() error {
	if c.signingMethod() == nil {
		return fmt.Errorf("jwt: unsupported signing method %q", c.Method)
	}
	if len(c.Secret) < 32 {
		return errors.New("jwt: secret must be at least 32 bytes")
	}
	if c.TTL < 0 {
		return errors.New("jwt: ttl must not be negative")
	}
	return nil
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS256:
		return gojwt.SigningMethodHS256
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	default:
		return nil
	}
}

// Claims are the token claims the API understands.
type Claims struct {
	gojwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

// HasScope reports whether the token grants scope. A token without scopes
// grants everything.
func (c *Claims) HasScope(scope string) bool {
	return len(c.Scopes) == 0 || slices.Contains(c.Scopes, scope)
}

// Service signs and parses tokens.
type Service struct {
	cfg    Config
	method gojwt.SigningMethod
	now    func() time.Time
}

// NewService validates cfg and returns a Service.
func NewService(cfg Config) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, method: cfg.signingMethod(), now: time.Now}, nil
}

// Issue signs a token for subject that expires after the configured TTL.
func (s *Service) Issue(subject string, scopes []string) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			NotBefore: gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
		Scopes: scopes,
	}
	if s.cfg.Audience != "" {
		claims.Audience = gojwt.ClaimStrings{s.cfg.Audience}
	}
	signed, err := gojwt.NewWithClaims(s.method, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature, time claims, issuer and audience of token.
func (s *Service) Parse(token string) (*Claims, error) {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{s.method.Alg()}),
		gojwt.WithIssuer(s.cfg.Issuer),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(s.now),
		gojwt.WithLeeway(s.cfg.Leeway),
	}
	if s.cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(s.cfg.Audience))
	}
	claims := &Claims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("jwt: invalid token")
	}
	return claims, nil
}

// ValidateToken lets Service serve as the API's token validator.
func (s *Service) ValidateToken(token string) (*Claims, error) { return s.Parse(token) }

// IsExpired reports whether err came from an expired token.
func IsExpired(err error) bool { return errors.Is(err, gojwt.ErrTokenExpired) }
