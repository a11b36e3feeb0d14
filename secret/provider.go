package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves references as environment variable names.
type EnvProvider struct {
	// Prefix is prepended to every reference.
	Prefix string
}

// Name returns "env".
func (p *EnvProvider) Name() string { return "env" }

// Resolve returns the value of the variable Prefix+ref.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	key := p.Prefix + ref
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("%w: env %s", ErrSecretNotFound, key)
	}
	return v, nil
}

// Close is a no-op.
func (p *EnvProvider) Close() error { return nil }

// FileProvider resolves references as file names under Dir. Trailing newlines
// are trimmed.
type FileProvider struct {
	Dir string
}

// Name returns "file".
func (p *FileProvider) Name() string { return "file" }

// Resolve reads Dir/ref. References may not leave Dir.
func (p *FileProvider) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !filepath.IsLocal(ref) {
		return "", fmt.Errorf("%w: %q escapes the secret directory", ErrInvalidRef, ref)
	}

	data, err := os.ReadFile(filepath.Join(p.Dir, ref))
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: file %s", ErrSecretNotFound, ref)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Close is a no-op.
func (p *FileProvider) Close() error { return nil }
