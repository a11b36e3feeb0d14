package monitor

import (
	"sync"
	"time"
)

// EventKind identifies a notification.
type EventKind int

const (
	// EventStart is emitted when the monitor starts ticking.
	EventStart EventKind = iota
	// EventStop is emitted when a running monitor is stopped.
	EventStop
	// EventUp is emitted on a transition into StatusUp.
	EventUp
	// EventDown is emitted on a transition out of StatusUp.
	EventDown
	// EventChange is emitted on every transition.
	EventChange
	// EventTimeout is emitted when a check loses the race against its deadline.
	EventTimeout
	// EventResult is emitted once per processed tick.
	EventResult
	// EventError is emitted when a check returns an error or panics.
	EventError
)

var eventKindNames = [...]string{
	EventStart:   "start",
	EventStop:    "stop",
	EventUp:      "up",
	EventDown:    "down",
	EventChange:  "change",
	EventTimeout: "timeout",
	EventResult:  "result",
	EventError:   "error",
}

// String returns the lowercase event name.
func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return "unknown"
	}
	return eventKindNames[k]
}

// Event is the payload delivered to listeners.
//
// Start and Stop carry Kind, the current Status and Timestamp. Result, Timeout
// and Error carry Status and Timestamp; Error and Result also carry Err when
// the check failed.
// Change, Up and Down additionally carry Since and For.
type Event struct {
	Kind      EventKind
	Status    Status
	Timestamp time.Time

	// Since and For are read through UpSince/DownSince and UpFor/DownFor right
	// after the new status is stored but before ChangedAt moves, so they
	// describe the stretch that just ended.
	Since time.Time
	For   time.Duration

	Err error
}

// Listener receives events. A monitor delivers its events one at a time, in
// order, on whichever goroutine is delivering. Listeners must not block for
// long.
type Listener func(Event)

type subscription struct {
	id uint64
	fn Listener
}

// listeners is a registry of subscriptions keyed by kind. A subscription with
// no kind filter lives in all.
type listeners struct {
	mu     sync.RWMutex
	nextID uint64
	byKind map[EventKind][]subscription
	all    []subscription
}

func newListeners() *listeners {
	return &listeners{byKind: make(map[EventKind][]subscription)}
}

func (l *listeners) add(kind EventKind, catchAll bool, fn Listener) func() {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	if catchAll {
		l.all = append(l.all, subscription{id: id, fn: fn})
	} else {
		l.byKind[kind] = append(l.byKind[kind], subscription{id: id, fn: fn})
	}
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(kind, catchAll, id) })
	}
}

func (l *listeners) remove(kind EventKind, catchAll bool, id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if catchAll {
		l.all = without(l.all, id)
		return
	}
	l.byKind[kind] = without(l.byKind[kind], id)
}

func without(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// targets returns the listeners for kind: kind-specific ones first, then
// catch-all ones.
func (l *listeners) targets(kind EventKind) []Listener {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Listener, 0, len(l.byKind[kind])+len(l.all))
	for _, s := range l.byKind[kind] {
		out = append(out, s.fn)
	}
	for _, s := range l.all {
		out = append(out, s.fn)
	}
	return out
}
