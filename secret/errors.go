package secret

import "errors"

var (
	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrProviderNotFound indicates a reference names an unregistered provider.
	ErrProviderNotFound = errors.New("secret: provider not registered")

	// ErrProviderExists indicates a duplicate factory registration.
	ErrProviderExists = errors.New("secret: provider already registered")

	// ErrEmptySecret indicates a strict resolver got an empty value.
	ErrEmptySecret = errors.New("secret: provider returned empty value")

	// ErrSecretNotFound indicates the provider has no value for a reference.
	ErrSecretNotFound = errors.New("secret: not found")

	// ErrInvalidRef indicates a malformed reference.
	ErrInvalidRef = errors.New("secret: invalid reference")
)
