package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"
)

// DefaultAPIKeyHeader carries API keys unless APIKeyConfig.HeaderName is set.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKey is a registered key. Only its SHA-256 hash is kept.
type APIKey struct {
	// ID names the key in logs and in Identity.Claims["key_id"].
	ID string

	// Hash is the hex SHA-256 of the key, as returned by HashAPIKey.
	Hash string

	Principal string
	Roles     []string

	// ExpiresAt is zero for keys that never expire.
	ExpiresAt time.Time
}

// APIKeyConfig configures APIKeyAuthenticator.
type APIKeyConfig struct {
	// HeaderName is the header carrying the key.
	// Default: DefaultAPIKeyHeader
	HeaderName string
}

// APIKeyAuthenticator matches a request header against a fixed key set.
type APIKeyAuthenticator struct {
	header string
	keys   []apiKeyEntry
	now    func() time.Time
}

type apiKeyEntry struct {
	APIKey
	sum []byte
}

// NewAPIKeyAuthenticator creates an authenticator for keys. Keys whose hash is
// not valid hex are ignored.
func NewAPIKeyAuthenticator(cfg APIKeyConfig, keys ...APIKey) *APIKeyAuthenticator {
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultAPIKeyHeader
	}
	a := &APIKeyAuthenticator{header: cfg.HeaderName, now: time.Now}
	for _, k := range keys {
		sum, err := hex.DecodeString(k.Hash)
		if err != nil || len(sum) != sha256.Size {
			continue
		}
		a.keys = append(a.keys, apiKeyEntry{APIKey: k, sum: sum})
	}
	return a
}

// HashAPIKey returns the hex SHA-256 of key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string { return string(MethodAPIKey) }

// Supports reports whether the key header is present.
func (a *APIKeyAuthenticator) Supports(_ context.Context, req *Request) bool {
	return req.Header(a.header) != ""
}

// Authenticate compares the presented key against every registered key in
// constant time.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, req *Request) (*Result, error) {
	presented := strings.TrimSpace(req.Header(a.header))
	if presented == "" {
		return Failure(a.Name(), ErrMissingCredentials), nil
	}

	sum := sha256.Sum256([]byte(presented))
	var match *apiKeyEntry
	for i := range a.keys {
		if subtle.ConstantTimeCompare(sum[:], a.keys[i].sum) == 1 && match == nil {
			match = &a.keys[i]
		}
	}
	if match == nil {
		return Failure(a.Name(), ErrInvalidCredentials), nil
	}
	if !match.ExpiresAt.IsZero() && a.now().After(match.ExpiresAt) {
		return Failure(a.Name(), ErrTokenExpired), nil
	}

	return Success(a.Name(), &Identity{
		Principal: match.Principal,
		Roles:     match.Roles,
		Method:    MethodAPIKey,
		Claims:    map[string]any{"key_id": match.ID},
		ExpiresAt: match.ExpiresAt,
	}), nil
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)
