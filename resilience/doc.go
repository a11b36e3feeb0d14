// Package resilience provides the concurrency primitives a health monitor is
// built on.
//
// # Race
//
// Race runs several operations at once and takes the first to finish. The
// others are abandoned rather than awaited: they run to completion on their
// own goroutines and their results are dropped. Racing a check against a
// deadline is the heart of every monitor tick:
//
//	up, err := resilience.RaceDeadline(ctx, 2*time.Second, func(ctx context.Context) (bool, error) {
//	    return db.PingContext(ctx) == nil, nil
//	})
//	if errors.Is(err, resilience.ErrTimeout) {
//	    // the deadline won
//	}
//
// # Bulkhead
//
// Bulkhead limits how many operations run at once and never waits for a slot.
// It acts as an overlap guard: TryAcquire fails while earlier holders are
// still running.
package resilience
