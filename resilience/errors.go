package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrTimeout is returned when the deadline branch of a race wins.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrPanic wraps a value recovered from a panicking op.
	ErrPanic = errors.New("resilience: operation panicked")

	// ErrNoOps is returned when Race is called without ops.
	ErrNoOps = errors.New("resilience: nothing to race")
)
