package resilience

import (
	"context"
	"fmt"
	"time"
)

// Op is a unit of work raced by Race.
type Op[T any] func(ctx context.Context) (T, error)

type outcome[T any] struct {
	value T
	err   error
}

// Race runs every op concurrently and returns the result of whichever
// finishes first.
//
// The losing ops are abandoned, not awaited: they keep running until they
// return on their own, and their results are dropped. The ctx handed to the ops
// is canceled once Race returns, so ops that honor it stop early. If ctx is
// done before any op finishes, Race returns ctx.Err(). A panicking op finishes
// with an error wrapping ErrPanic.
func Race[T any](ctx context.Context, ops ...Op[T]) (T, error) {
	var zero T
	if len(ops) == 0 {
		return zero, ErrNoOps
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so abandoned ops never block on send.
	done := make(chan outcome[T], len(ops))

	for _, op := range ops {
		go func(op Op[T]) {
			defer func() {
				if r := recover(); r != nil {
					done <- outcome[T]{err: fmt.Errorf("%w: %v", ErrPanic, r)}
				}
			}()
			v, err := op(ctx)
			done <- outcome[T]{value: v, err: err}
		}(op)
	}

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// After returns an op that fails with err once d has elapsed.
// It is the deadline branch of a Race.
func After[T any](d time.Duration, err error) Op[T] {
	return func(ctx context.Context) (T, error) {
		var zero T
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
			return zero, err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// RaceDeadline races op against a deadline of d and returns ErrTimeout when
// the deadline wins.
func RaceDeadline[T any](ctx context.Context, d time.Duration, op Op[T]) (T, error) {
	return Race(ctx, op, After[T](d, ErrTimeout))
}
