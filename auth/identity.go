package auth

import (
	"slices"
	"time"
)

// Method names how a request was authenticated.
type Method string

const (
	MethodJWT    Method = "jwt"
	MethodAPIKey Method = "api_key"
)

// Identity is an authenticated caller.
type Identity struct {
	// Principal identifies the caller (JWT subject or API key owner).
	Principal string

	Roles  []string
	Method Method

	// Claims holds the token claims for JWT identities and the key ID for
	// API key identities.
	Claims map[string]any

	// ExpiresAt is zero when the credential never expires.
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasRole reports whether the identity carries role.
func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// IsExpired reports whether ExpiresAt has passed.
func (id *Identity) IsExpired() bool {
	return !id.ExpiresAt.IsZero() && time.Now().After(id.ExpiresAt)
}
