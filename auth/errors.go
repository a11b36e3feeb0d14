package auth

import "errors"

// Sentinel errors for authentication and authorization.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrKeyNotFound        = errors.New("auth: signing key not found")
	ErrKeySetUnavailable  = errors.New("auth: key set unavailable")
	ErrForbidden          = errors.New("auth: access denied")
	ErrInvalidConfig      = errors.New("auth: invalid config")
	ErrNotConfigured      = errors.New("auth: no authenticator configured")
)
