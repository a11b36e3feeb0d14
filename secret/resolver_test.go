package secret

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	name    string
	values  map[string]string
	resolve func(ref string) (string, error)
	closed  bool
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	if s.resolve != nil {
		return s.resolve(ref)
	}
	return s.values[ref], nil
}

func (s *stubProvider) Close() error {
	s.closed = true
	return nil
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		ref      string
		ok       bool
	}{
		{"secretref:stub:alpha", "stub", "alpha", true},
		{"secretref:file:nested/key:with:colons", "file", "nested/key:with:colons", true},
		{"secretref:stub:", "", "", false},
		{"secretref::alpha", "", "", false},
		{"not-a-secretref", "", "", false},
	}
	for _, tt := range tests {
		p, ref, ok := ParseSecretRef(tt.in)
		if p != tt.provider || ref != tt.ref || ok != tt.ok {
			t.Errorf("ParseSecretRef(%q) = %q, %q, %v", tt.in, p, ref, ok)
		}
	}
}

func TestResolver_ResolvesFullSecretRef(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"alpha": "one"}})

	got, err := r.ResolveValue(context.Background(), "secretref:stub:alpha")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "one" {
		t.Fatalf("ResolveValue() = %q, want %q", got, "one")
	}
}

func TestResolver_ResolvesInlineSecretRefs(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"user": "u", "pass": "p"}})

	got, err := r.ResolveValue(context.Background(), "redis://secretref:stub:user @host secretref:stub:pass")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "redis://u @host p" {
		t.Fatalf("ResolveValue() = %q", got)
	}
}

func TestResolver_EnvThenRef(t *testing.T) {
	t.Setenv("PROBE_SECRET_KEY", "alpha")
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"alpha": "one"}})

	got, err := r.ResolveValue(context.Background(), "secretref:stub:${PROBE_SECRET_KEY}")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "one" {
		t.Fatalf("ResolveValue() = %q, want %q", got, "one")
	}
}

func TestResolver_Errors(t *testing.T) {
	stub := &stubProvider{name: "stub", resolve: func(ref string) (string, error) {
		switch ref {
		case "boom":
			return "", errors.New("explode")
		case "empty":
			return "", nil
		}
		return "ok", nil
	}}
	r := NewResolver(true, stub)
	ctx := context.Background()

	if _, err := r.ResolveValue(ctx, "secretref:stub:empty"); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("empty value error = %v, want ErrEmptySecret", err)
	}
	if _, err := r.ResolveValue(ctx, "secretref:other:x"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("unknown provider error = %v, want ErrProviderNotFound", err)
	}
	if _, err := r.ResolveValue(ctx, "secretref:stub:boom"); err == nil {
		t.Error("expected provider error to propagate")
	}

	lax := NewResolver(false, stub)
	if got, err := lax.ResolveValue(ctx, "secretref:stub:empty"); err != nil || got != "" {
		t.Errorf("non-strict empty = %q, %v", got, err)
	}
}

func TestResolver_NilExpandsOnly(t *testing.T) {
	t.Setenv("PROBE_NIL_RESOLVER", "x")
	var r *Resolver

	got, err := r.ResolveValue(context.Background(), "${PROBE_NIL_RESOLVER}-secretref:stub:alpha")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "x-secretref:stub:alpha" {
		t.Fatalf("ResolveValue() = %q", got)
	}
}

func TestResolver_ResolveMapAndSlice(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"alpha": "one"}})
	ctx := context.Background()

	slice, err := r.ResolveSlice(ctx, []string{"a", "secretref:stub:alpha"})
	if err != nil {
		t.Fatalf("ResolveSlice() error = %v", err)
	}
	if slice[0] != "a" || slice[1] != "one" {
		t.Fatalf("unexpected slice: %#v", slice)
	}

	m, err := r.ResolveMap(ctx, map[string]string{"Authorization": "Bearer secretref:stub:alpha"})
	if err != nil {
		t.Fatalf("ResolveMap() error = %v", err)
	}
	if m["Authorization"] != "Bearer one" {
		t.Fatalf("ResolveMap() = %#v", m)
	}

	if m, err := r.ResolveMap(ctx, nil); m != nil || err != nil {
		t.Fatalf("ResolveMap(nil) = %v, %v", m, err)
	}
}

func TestResolver_Close(t *testing.T) {
	a := &stubProvider{name: "a"}
	b := &stubProvider{name: "b"}
	r := NewResolver(false, a, b, nil)

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatal("expected every provider closed")
	}
}
