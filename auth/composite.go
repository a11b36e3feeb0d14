package auth

import "context"

// CompositeAuthenticator tries authenticators in order. The first success
// wins; otherwise the last failure is returned.
type CompositeAuthenticator struct {
	authenticators []Authenticator
}

// NewCompositeAuthenticator creates a CompositeAuthenticator. Nil entries
// are skipped.
func NewCompositeAuthenticator(authenticators ...Authenticator) *CompositeAuthenticator {
	c := &CompositeAuthenticator{}
	for _, a := range authenticators {
		if a != nil {
			c.authenticators = append(c.authenticators, a)
		}
	}
	return c
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string { return "composite" }

// Supports reports whether any member supports req.
func (c *CompositeAuthenticator) Supports(ctx context.Context, req *Request) bool {
	for _, a := range c.authenticators {
		if a.Supports(ctx, req) {
			return true
		}
	}
	return false
}

// Authenticate runs every supporting member until one succeeds. A member
// error stops the chain.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	last := Failure(c.Name(), ErrMissingCredentials)
	for _, a := range c.authenticators {
		if !a.Supports(ctx, req) {
			continue
		}
		res, err := a.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if res.Authenticated {
			return res, nil
		}
		last = res
	}
	return last, nil
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
