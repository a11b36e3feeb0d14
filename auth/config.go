package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonwraymond/probewatch/secret"
)

// Config is the YAML form of the endpoint authentication settings.
//
//	auth:
//	  required_role: ops
//	  api_keys:
//	    - id: ci
//	      principal: ci-bot
//	      key: secretref:env:CI_API_KEY
//	      roles: [ops]
//	  jwt:
//	    issuer: https://id.example.com
//	    audience: probewatch
//	    jwks_url: https://id.example.com/.well-known/jwks.json
//	    roles_claim: roles
type Config struct {
	// RequiredRole, when set, is enforced with RequireRole.
	RequiredRole string `yaml:"required_role"`

	APIKeys   []APIKeyEntry `yaml:"api_keys"`
	APIHeader string        `yaml:"api_key_header"`

	JWT JWTSettings `yaml:"jwt"`
}

// APIKeyEntry configures one API key. Exactly one of Key (plaintext or a
// secret reference) and Hash must be set.
type APIKeyEntry struct {
	ID        string    `yaml:"id"`
	Principal string    `yaml:"principal"`
	Key       string    `yaml:"key"`
	Hash      string    `yaml:"hash"`
	Roles     []string  `yaml:"roles"`
	ExpiresAt time.Time `yaml:"expires_at"`
}

// JWTSettings configures bearer token validation. Secret and JWKSURL are
// mutually exclusive; setting neither disables JWT.
type JWTSettings struct {
	Secret         string        `yaml:"secret"`
	JWKSURL        string        `yaml:"jwks_url"`
	Issuer         string        `yaml:"issuer"`
	Audience       string        `yaml:"audience"`
	PrincipalClaim string        `yaml:"principal_claim"`
	RolesClaim     string        `yaml:"roles_claim"`
	Leeway         time.Duration `yaml:"leeway"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
}

func (j JWTSettings) enabled() bool {
	return j.Secret != "" || j.JWKSURL != ""
}

// Enabled reports whether any authenticator is configured.
func (c Config) Enabled() bool {
	return len(c.APIKeys) > 0 || c.JWT.enabled()
}

// Validate reports configuration errors wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	if c.JWT.Secret != "" && c.JWT.JWKSURL != "" {
		errs = append(errs, fmt.Errorf("%w: jwt secret and jwks_url are mutually exclusive", ErrInvalidConfig))
	}
	for i, k := range c.APIKeys {
		switch {
		case k.Principal == "":
			errs = append(errs, fmt.Errorf("%w: api_keys[%d]: principal is required", ErrInvalidConfig, i))
		case (k.Key == "") == (k.Hash == ""):
			errs = append(errs, fmt.Errorf("%w: api_keys[%d]: set exactly one of key and hash", ErrInvalidConfig, i))
		}
	}
	return errors.Join(errs...)
}

// Resolve returns a copy of c with environment variables and secret
// references in keys, the JWT secret and the JWKS URL resolved through r.
// A key or JWT secret that resolves to an empty value is an error wrapping
// ErrInvalidConfig.
func (c Config) Resolve(ctx context.Context, r *secret.Resolver) (Config, error) {
	out := c
	out.APIKeys = make([]APIKeyEntry, len(c.APIKeys))
	for i, k := range c.APIKeys {
		if k.Key != "" {
			v, err := r.ResolveValue(ctx, k.Key)
			if err != nil {
				return Config{}, fmt.Errorf("api_keys[%d]: %w", i, err)
			}
			if v == "" {
				return Config{}, fmt.Errorf("%w: api_keys[%d]: key resolved to an empty value", ErrInvalidConfig, i)
			}
			k.Key = v
		}
		out.APIKeys[i] = k
	}

	var err error
	if out.JWT.Secret, err = r.ResolveValue(ctx, c.JWT.Secret); err != nil {
		return Config{}, fmt.Errorf("jwt secret: %w", err)
	}
	if c.JWT.Secret != "" && out.JWT.Secret == "" {
		return Config{}, fmt.Errorf("%w: jwt secret resolved to an empty value", ErrInvalidConfig)
	}
	if out.JWT.JWKSURL, err = r.ResolveValue(ctx, c.JWT.JWKSURL); err != nil {
		return Config{}, fmt.Errorf("jwt jwks_url: %w", err)
	}
	return out, nil
}

// New builds the authenticator described by cfg: API keys first, then JWT.
// It returns ErrNotConfigured when cfg enables nothing.
func New(cfg Config) (Authenticator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	var members []Authenticator
	if len(cfg.APIKeys) > 0 {
		keys := make([]APIKey, 0, len(cfg.APIKeys))
		for i, k := range cfg.APIKeys {
			hash := k.Hash
			if hash == "" {
				hash = HashAPIKey(k.Key)
			}
			id := k.ID
			if id == "" {
				id = fmt.Sprintf("key-%d", i)
			}
			keys = append(keys, APIKey{
				ID:        id,
				Hash:      hash,
				Principal: k.Principal,
				Roles:     k.Roles,
				ExpiresAt: k.ExpiresAt,
			})
		}
		members = append(members, NewAPIKeyAuthenticator(APIKeyConfig{HeaderName: cfg.APIHeader}, keys...))
	}

	if cfg.JWT.enabled() {
		var keys KeyProvider
		if cfg.JWT.Secret != "" {
			keys = NewStaticKeyProvider([]byte(cfg.JWT.Secret))
		} else {
			keys = NewJWKSKeyProvider(JWKSConfig{URL: cfg.JWT.JWKSURL, CacheTTL: cfg.JWT.CacheTTL})
		}
		members = append(members, NewJWTAuthenticator(JWTConfig{
			Issuer:         cfg.JWT.Issuer,
			Audience:       cfg.JWT.Audience,
			PrincipalClaim: cfg.JWT.PrincipalClaim,
			RolesClaim:     cfg.JWT.RolesClaim,
			Leeway:         cfg.JWT.Leeway,
		}, keys))
	}

	if len(members) == 1 {
		return members[0], nil
	}
	return NewCompositeAuthenticator(members...), nil
}

// Handler returns the middleware chain for cfg: Middleware(authn) followed by
// RequireRole when RequiredRole is set.
func (c Config) Handler(authn Authenticator, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	authenticate := Middleware(authn, opts...)
	if c.RequiredRole == "" {
		return authenticate
	}
	require := RequireRole(c.RequiredRole)
	return func(next http.Handler) http.Handler {
		return authenticate(require(next))
	}
}
