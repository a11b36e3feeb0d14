// Package auth authenticates requests to the probewatch HTTP endpoints.
//
// # Authenticators
//
// An Authenticator inspects a Request and returns a Result. Failed
// credentials are reported in the Result, not as an error; an error means the
// authenticator itself could not decide (for example a JWKS endpoint was
// unreachable).
//
//   - JWTAuthenticator validates bearer tokens signed with a static key or a
//     key fetched from a JWKS endpoint.
//   - APIKeyAuthenticator compares a header against SHA-256 key hashes.
//   - CompositeAuthenticator tries several authenticators in order.
//
// # HTTP
//
// Middleware rejects unauthenticated requests with 401 and stores the
// Identity in the request context. RequireRole narrows access further:
//
//	authn, _ := auth.New(cfg)
//	protect := auth.Middleware(authn)
//	health.RegisterHandlers(mux, agg, health.WithMiddleware(protect))
package auth
