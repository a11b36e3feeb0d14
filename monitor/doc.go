// Package monitor implements a periodic health-probe monitor.
//
// A Monitor calls a user-supplied Check on a fixed interval, races each call
// against a timeout and keeps a two-state machine (up/down) with counters,
// last-seen timestamps and a bounded history of transitions. Observers
// subscribe to typed events.
//
// # Tick cycle
//
// Every interval the monitor spawns a tick without waiting for the previous
// one. A tick races the check against the timeout; whichever finishes first
// decides the outcome and the loser is abandoned. The outcome is normalized to
// a Status:
//
//   - true  -> StatusUp
//   - false -> StatusDown
//   - timeout, error or panic -> StatusDown, with a Timeout or Error event
//
// A Result event is emitted for every tick. When the status differs from the
// stored one the monitor records a transition and emits Change followed by
// either Up or Down.
//
// # Basic Usage
//
//	m := monitor.New(func(ctx context.Context) (bool, error) {
//	    return db.PingContext(ctx) == nil, nil
//	}, monitor.Config{
//	    Name:     "postgres",
//	    Interval: 5 * time.Second,
//	    Timeout:  time.Second,
//	},
//	    monitor.OnDown(func(e monitor.Event) {
//	        log.Printf("postgres down after %s up", e.For)
//	    }),
//	)
//	m.Start()
//	defer m.Stop()
//
// # Concurrency
//
// Ticks may overlap when a check outlives the interval. State updates are
// serialized, and the events of one tick are delivered together and in order.
// Set Config.MaxInFlight to skip ticks while earlier ones are still racing.
// Once Stop returns, outcomes of ticks that were still in flight are discarded
// and no further listener sees them. Listeners may call Start or Stop; the
// resulting events are delivered after the current listener returns.
package monitor
