package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("PROBE_TOKEN", "t0k")
	p := &EnvProvider{Prefix: "PROBE_"}

	got, err := p.Resolve(context.Background(), "TOKEN")
	if err != nil || got != "t0k" {
		t.Fatalf("Resolve() = %q, %v", got, err)
	}
	if _, err := p.Resolve(context.Background(), "ABSENT_FOR_TEST"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("missing error = %v, want ErrSecretNotFound", err)
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "redis-password"), []byte("hunter2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p := &FileProvider{Dir: dir}
	ctx := context.Background()

	got, err := p.Resolve(ctx, "redis-password")
	if err != nil || got != "hunter2" {
		t.Fatalf("Resolve() = %q, %v", got, err)
	}
	if _, err := p.Resolve(ctx, "absent"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("missing error = %v, want ErrSecretNotFound", err)
	}
	if _, err := p.Resolve(ctx, "../etc/passwd"); !errors.Is(err, ErrInvalidRef) {
		t.Errorf("traversal error = %v, want ErrInvalidRef", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if got := r.List(); len(got) != 2 || got[0] != "env" || got[1] != "file" {
		t.Fatalf("List() = %v", got)
	}

	p, err := r.Create("file", map[string]any{"dir": "/run/secrets"})
	if err != nil {
		t.Fatalf("Create(file) error = %v", err)
	}
	if fp, ok := p.(*FileProvider); !ok || fp.Dir != "/run/secrets" {
		t.Fatalf("Create(file) = %#v", p)
	}

	if _, err := r.Create("file", nil); err == nil {
		t.Error("expected file provider without dir to fail")
	}
	if _, err := r.Create("env", map[string]any{"prefix": 3}); err == nil {
		t.Error("expected non-string prefix to fail")
	}
	if _, err := r.Create("vault", nil); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("Create(vault) error = %v", err)
	}

	if err := r.Register("env", newEnvProvider); !errors.Is(err, ErrProviderExists) {
		t.Errorf("duplicate Register() error = %v", err)
	}
	if err := r.Register("static", func(map[string]any) (Provider, error) {
		return &stubProvider{name: "static"}, nil
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := r.Create("static", nil); err != nil {
		t.Fatalf("Create(static) error = %v", err)
	}
}
