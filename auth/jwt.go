package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures JWTAuthenticator.
type JWTConfig struct {
	// Issuer, when set, must match the iss claim.
	Issuer string

	// Audience, when set, must be listed in the aud claim.
	Audience string

	// PrincipalClaim names the claim holding the principal.
	// Default: "sub"
	PrincipalClaim string

	// RolesClaim names a claim holding roles, either a list or a
	// space-separated string.
	RolesClaim string

	// Methods lists the accepted signing algorithms.
	// Default: HS256, HS384, HS512, RS256, RS384, RS512
	Methods []string

	// Leeway is the clock skew tolerated on exp, nbf and iat.
	Leeway time.Duration
}

// KeyProvider returns the key that verifies tokens signed under keyID.
type KeyProvider interface {
	Key(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider returns one shared HMAC key for every key ID.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a StaticKeyProvider for key.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// Key returns the static key.
func (p *StaticKeyProvider) Key(context.Context, string) (any, error) {
	return p.key, nil
}

// JWTAuthenticator validates bearer tokens from the Authorization header.
type JWTAuthenticator struct {
	cfg  JWTConfig
	keys KeyProvider
}

// NewJWTAuthenticator creates a JWTAuthenticator verifying tokens with keys.
func NewJWTAuthenticator(cfg JWTConfig, keys KeyProvider) *JWTAuthenticator {
	if cfg.PrincipalClaim == "" {
		cfg.PrincipalClaim = "sub"
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = []string{"HS256", "HS384", "HS512", "RS256", "RS384", "RS512"}
	}
	return &JWTAuthenticator{cfg: cfg, keys: keys}
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string { return string(MethodJWT) }

// Supports reports whether the request carries a bearer token.
func (a *JWTAuthenticator) Supports(_ context.Context, req *Request) bool {
	_, ok := bearerToken(req.Header("Authorization"))
	return ok
}

// Authenticate parses and verifies the bearer token. A key provider failure
// other than ErrKeyNotFound is returned as an error.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	raw, ok := bearerToken(req.Header("Authorization"))
	if !ok {
		return Failure(a.Name(), ErrMissingCredentials), nil
	}

	var keyErr error
	keyfunc := func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, err := a.keys.Key(ctx, kid)
		if err != nil {
			keyErr = err
		}
		return key, err
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, keyfunc, a.parserOptions()...)
	switch {
	case err == nil:
	case keyErr != nil && !errors.Is(keyErr, ErrKeyNotFound):
		return nil, keyErr
	case errors.Is(err, jwt.ErrTokenExpired):
		return Failure(a.Name(), ErrTokenExpired), nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Failure(a.Name(), ErrTokenMalformed), nil
	case keyErr != nil:
		return Failure(a.Name(), ErrKeyNotFound), nil
	default:
		return Failure(a.Name(), ErrInvalidCredentials), nil
	}

	return Success(a.Name(), a.identity(claims)), nil
}

func (a *JWTAuthenticator) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{jwt.WithValidMethods(a.cfg.Methods)}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}
	if a.cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(a.cfg.Leeway))
	}
	return opts
}

func (a *JWTAuthenticator) identity(claims jwt.MapClaims) *Identity {
	id := &Identity{
		Method: MethodJWT,
		Claims: make(map[string]any, len(claims)),
	}
	for k, v := range claims {
		id.Claims[k] = v
	}
	id.Principal, _ = claims[a.cfg.PrincipalClaim].(string)
	if a.cfg.RolesClaim != "" {
		id.Roles = stringList(claims[a.cfg.RolesClaim])
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	return id
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func stringList(v any) []string {
	switch v := v.(type) {
	case string:
		return strings.Fields(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ KeyProvider   = (*StaticKeyProvider)(nil)
)
