package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	realm     string
	onFailure func(r *http.Request, err error)
}

// WithRealm sets the realm advertised in WWW-Authenticate.
// Default: "probewatch"
func WithRealm(realm string) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.realm = realm
	}
}

// WithFailureHook calls fn for every rejected or failed request.
func WithFailureHook(fn func(r *http.Request, err error)) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.onFailure = fn
	}
}

// Middleware authenticates every request with authn. Requests without
// supported credentials or with rejected credentials get 401; authenticator
// errors get 500. Authenticated requests carry the Identity in their context.
func Middleware(authn Authenticator, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{realm: "probewatch"}
	for _, opt := range opts {
		opt(&cfg)
	}
	challenge := fmt.Sprintf("Bearer realm=%q", cfg.realm)

	fail := func(w http.ResponseWriter, r *http.Request, code int, err error) {
		if cfg.onFailure != nil {
			cfg.onFailure(r, err)
		}
		if code == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", challenge)
		}
		writeError(w, code, err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			req := NewRequest(r)

			if !authn.Supports(ctx, req) {
				fail(w, r, http.StatusUnauthorized, ErrMissingCredentials)
				return
			}

			res, err := authn.Authenticate(ctx, req)
			if err != nil {
				fail(w, r, http.StatusInternalServerError, err)
				return
			}
			if !res.Authenticated {
				err := res.Err
				if err == nil {
					err = ErrInvalidCredentials
				}
				fail(w, r, http.StatusUnauthorized, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, res.Identity)))
		})
	}
}

// RequireRole allows only identities carrying role. It must run inside
// Middleware; a request without an identity gets 401, one lacking the role
// gets 403.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			switch {
			case id == nil:
				writeError(w, http.StatusUnauthorized, ErrMissingCredentials)
			case !id.HasRole(role):
				writeError(w, http.StatusForbidden, fmt.Errorf("%w: role %q required", ErrForbidden, role))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	msg := err.Error()
	if code == http.StatusInternalServerError && !errors.Is(err, ErrKeySetUnavailable) {
		msg = http.StatusText(code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
