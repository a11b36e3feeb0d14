package auth

import (
	"context"
	"net/http"
)

// Authenticator validates the credentials carried by a request.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: Authenticate should honor cancellation.
//   - Errors: rejected credentials are returned as a failed Result with a nil
//     error; a non-nil error means no decision could be made.
type Authenticator interface {
	// Name identifies the authenticator in results and logs.
	Name() string

	// Supports reports whether req carries credentials this authenticator
	// understands.
	Supports(ctx context.Context, req *Request) bool

	Authenticate(ctx context.Context, req *Request) (*Result, error)
}

// Request is the part of an HTTP request authenticators look at.
type Request struct {
	Headers http.Header
	Path    string
}

// NewRequest extracts a Request from r.
func NewRequest(r *http.Request) *Request {
	return &Request{Headers: r.Header, Path: r.URL.Path}
}

// Header returns the first value of the header key.
func (r *Request) Header(key string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// Result is the outcome of an authentication attempt.
type Result struct {
	Authenticated bool

	// Identity is set when Authenticated is true.
	Identity *Identity

	// Err explains a failed attempt.
	Err error

	// Authenticator is the name of the authenticator that produced the result.
	Authenticator string
}

// Success returns an authenticated result for id.
func Success(name string, id *Identity) *Result {
	return &Result{Authenticated: true, Identity: id, Authenticator: name}
}

// Failure returns a rejected result.
func Failure(name string, err error) *Result {
	return &Result{Err: err, Authenticator: name}
}

// AuthenticatorFunc adapts a function to Authenticator. It supports every
// request.
type AuthenticatorFunc func(ctx context.Context, req *Request) (*Result, error)

// Name returns "func".
func (f AuthenticatorFunc) Name() string { return "func" }

// Supports always returns true.
func (f AuthenticatorFunc) Supports(context.Context, *Request) bool { return true }

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	return f(ctx, req)
}
