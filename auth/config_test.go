package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/probewatch/secret"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"empty", Config{}, false},
		{"key", Config{APIKeys: []APIKeyEntry{{Principal: "p", Key: "k"}}}, false},
		{"hash", Config{APIKeys: []APIKeyEntry{{Principal: "p", Hash: HashAPIKey("k")}}}, false},
		{"key and hash", Config{APIKeys: []APIKeyEntry{{Principal: "p", Key: "k", Hash: "h"}}}, true},
		{"no principal", Config{APIKeys: []APIKeyEntry{{Key: "k"}}}, true},
		{"secret and jwks", Config{JWT: JWTSettings{Secret: "s", JWKSURL: "http://x"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("New(empty) error = %v", err)
	}

	a, err := New(Config{APIKeys: []APIKeyEntry{{Principal: "p", Key: "k"}}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := a.(*APIKeyAuthenticator); !ok {
		t.Errorf("single member = %T, want *APIKeyAuthenticator", a)
	}

	a, err = New(Config{JWT: JWTSettings{JWKSURL: "http://127.0.0.1:1/jwks"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := a.(*JWTAuthenticator); !ok {
		t.Errorf("jwks member = %T, want *JWTAuthenticator", a)
	}

	a, err = New(Config{
		APIKeys: []APIKeyEntry{{Principal: "p", Key: "k"}},
		JWT:     JWTSettings{Secret: "s"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := a.(*CompositeAuthenticator); !ok {
		t.Errorf("two members = %T, want *CompositeAuthenticator", a)
	}
}

func TestConfigResolveAndHandler(t *testing.T) {
	t.Setenv("PROBEWATCH_TEST_KEY", "from-env")

	const doc = `
required_role: ops
api_keys:
  - id: ci
    principal: ci-bot
    key: secretref:env:PROBEWATCH_TEST_KEY
    roles: [ops]
  - principal: viewer
    key: ${PROBEWATCH_TEST_KEY}-viewer
`
	var cfg Config
	if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
		t.Fatal(err)
	}

	resolver := secret.NewResolver(true, &secret.EnvProvider{})
	resolved, err := cfg.Resolve(context.Background(), resolver)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.APIKeys[0].Key != "from-env" || resolved.APIKeys[1].Key != "from-env-viewer" {
		t.Fatalf("resolved keys = %+v", resolved.APIKeys)
	}
	if cfg.APIKeys[0].Key == "from-env" {
		t.Error("Resolve() modified the receiver")
	}

	authn, err := New(resolved)
	if err != nil {
		t.Fatal(err)
	}
	h := resolved.Handler(authn)(whoami())

	if rec := serve(h, DefaultAPIKeyHeader, "from-env"); rec.Code != http.StatusOK || rec.Body.String() != "ci-bot" {
		t.Errorf("ops key: %d %q", rec.Code, rec.Body.String())
	}
	if rec := serve(h, DefaultAPIKeyHeader, "from-env-viewer"); rec.Code != http.StatusForbidden {
		t.Errorf("viewer key: %d", rec.Code)
	}
}

func TestConfigResolve_EmptyValues(t *testing.T) {
	t.Setenv("PROBEWATCH_TEST_EMPTY", "")
	resolver := secret.NewResolver(false, &secret.EnvProvider{})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"secretref key", Config{APIKeys: []APIKeyEntry{{Principal: "ci", Key: "secretref:env:PROBEWATCH_TEST_EMPTY"}}}},
		{"env key", Config{APIKeys: []APIKeyEntry{{Principal: "ci", Key: "${PROBEWATCH_TEST_EMPTY}"}}}},
		{"jwt secret", Config{JWT: JWTSettings{Secret: "secretref:env:PROBEWATCH_TEST_EMPTY"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.Resolve(context.Background(), resolver); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Resolve() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
