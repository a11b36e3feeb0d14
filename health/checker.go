package health

import (
	"context"
	"time"

	"github.com/jonwraymond/probewatch/monitor"
)

// Status is the graded outcome of a single check.
type Status int

const (
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates the component works but is under strain.
	StatusDegraded
	// StatusUnhealthy indicates the component is not functioning.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result contains the outcome of a check.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Timestamp time.Time

	// Error is the cause of an unhealthy result, if any.
	Error error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message, Timestamp: time.Now()}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err, Timestamp: time.Now()}
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Up reports whether the result counts as up for a monitor. Degraded
// components still serve traffic, so they are up.
func (r Result) Up() bool {
	return r.Status != StatusUnhealthy
}

// Checker probes one dependency.
type Checker interface {
	// Name returns the name of this checker.
	Name() string

	// Check probes the dependency. Implementations should return promptly
	// once ctx is done.
	Check(ctx context.Context) Result
}

// CheckerFunc is an adapter to allow ordinary functions to be used as Checkers.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string {
	return f.name
}

// Check performs the check.
func (f *CheckerFunc) Check(ctx context.Context) Result {
	return f.fn(ctx)
}

// AsCheck adapts a Checker to a monitor.Check. Healthy and degraded results
// are up; an unhealthy result is down and reports its Error, if any, so the
// monitor emits an Error event for it.
func AsCheck(c Checker) monitor.Check {
	return func(ctx context.Context) (bool, error) {
		r := c.Check(ctx)
		if r.Up() {
			return true, nil
		}
		return false, r.Error
	}
}
