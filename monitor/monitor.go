package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/probewatch/resilience"
)

// Monitor periodically runs a Check and tracks the up/down state it reports.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use.
//   - Ordering: events of a single tick are delivered together, in the order
//     Timeout|Error, Result, Change, Up|Down.
//   - Lifecycle: Stop does not clear counters, history or status.
type Monitor struct {
	id        string
	cfg       Config
	check     Check
	now       func() time.Time
	guard     *resilience.Bulkhead
	listeners *listeners

	// runMu serializes Start and Stop.
	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// emitMu makes recording a tick and delivering its events atomic with
	// respect to other ticks.
	emitMu sync.Mutex

	mu         sync.RWMutex
	gen        uint64
	running    bool
	outbox     []queued
	delivering bool
	status     Status
	createdAt  time.Time
	changedAt  time.Time
	counts     Counts
	last       LastSeen
	history    *history
}

// New creates a monitor for check. The monitor starts in StatusDown and does
// not tick until Start is called, unless cfg.Start is set.
func New(check Check, cfg Config, opts ...Option) *Monitor {
	cfg = cfg.withDefaults()

	m := &Monitor{
		id:        uuid.NewString(),
		cfg:       cfg,
		check:     check,
		now:       time.Now,
		listeners: newListeners(),
		status:    StatusDown,
		history:   newHistory(cfg.HistoryCapacity),
	}
	if cfg.MaxInFlight > 0 {
		m.guard = resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: cfg.MaxInFlight})
	}

	for _, opt := range opts {
		opt(m)
	}

	m.createdAt = m.now()
	m.last.Down = m.createdAt

	if cfg.Start {
		m.Start()
	}
	return m
}

// Start begins ticking every Interval. If the monitor is already running it is
// stopped first, so a restart emits Stop followed by Start.
func (m *Monitor) Start() {
	m.runMu.Lock()
	m.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.running = true
	m.outbox = append(m.outbox, queued{event: Event{Kind: EventStart, Status: m.status, Timestamp: m.now()}})
	m.mu.Unlock()

	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(ctx, gen, m.done)
	m.runMu.Unlock()

	m.deliver()
}

// Stop cancels the ticker. It is a no-op when the monitor is not running.
// Ticks still racing their check when Stop is called are discarded, and
// events of a tick that is being delivered are not passed to any further
// listener. The Stop event always follows the last event of the run.
//
// If another goroutine is delivering events when Stop is called, including
// a listener calling Stop itself, the Stop event is handed to that delivery
// and Stop returns without waiting for it.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	stopped := m.stopLocked()
	m.runMu.Unlock()

	if stopped {
		m.deliver()
	}
}

// stopLocked must be called with runMu held.
func (m *Monitor) stopLocked() bool {
	if m.cancel == nil {
		return false
	}

	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil

	m.mu.Lock()
	m.gen++
	m.running = false
	m.outbox = append(m.outbox, queued{event: Event{Kind: EventStop, Status: m.status, Timestamp: m.now()}})
	m.mu.Unlock()
	return true
}

func (m *Monitor) loop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go m.tick(gen)
		}
	}
}

func (m *Monitor) tick(gen uint64) {
	if m.guard != nil {
		if !m.guard.TryAcquire() {
			m.mu.Lock()
			if m.running && m.gen == gen {
				m.counts.Skipped++
			}
			m.mu.Unlock()
			return
		}
		defer m.guard.Release()
	}

	up, err := m.race()
	m.settle(gen, up, err)
}

// race runs the check against the timeout. The check is abandoned, not
// awaited, when the deadline wins.
func (m *Monitor) race() (bool, error) {
	if m.check == nil {
		return false, ErrNoCheck
	}
	return resilience.RaceDeadline(context.Background(), m.cfg.Timeout, resilience.Op[bool](m.check))
}

// settle records the outcome of a tick from run gen and delivers its events.
// Outcomes from a previous run are dropped.
func (m *Monitor) settle(gen uint64, up bool, err error) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	if !m.running || m.gen != gen {
		m.mu.Unlock()
		return
	}
	for _, e := range m.apply(m.now(), up, err) {
		m.outbox = append(m.outbox, queued{event: e, gen: gen, outcome: true})
	}
	m.mu.Unlock()

	m.deliver()
}

// queued is an event waiting for delivery. Outcome events remember the run
// that produced them so they can be dropped once that run ends.
type queued struct {
	event   Event
	gen     uint64
	outcome bool
}

// deliver passes queued events to listeners in order. Only one goroutine
// delivers at a time; a call made during another delivery, including from a
// listener, leaves its events to that delivery.
func (m *Monitor) deliver() {
	m.mu.Lock()
	if m.delivering {
		m.mu.Unlock()
		return
	}
	m.delivering = true

	for len(m.outbox) > 0 {
		q := m.outbox[0]
		m.outbox = m.outbox[1:]
		m.mu.Unlock()

		for _, fn := range m.listeners.targets(q.event.Kind) {
			if q.outcome && !m.live(q.gen) {
				break
			}
			fn(q.event)
		}

		m.mu.Lock()
	}

	m.outbox = nil
	m.delivering = false
	m.mu.Unlock()
}

func (m *Monitor) live(gen uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running && m.gen == gen
}

// apply updates state for one outcome and returns the events to deliver.
// Caller must hold mu.
func (m *Monitor) apply(ts time.Time, up bool, err error) []Event {
	events := make([]Event, 0, 4)

	status := StatusDown
	switch {
	case errors.Is(err, resilience.ErrTimeout):
		m.last.Timeout = ts
		m.counts.Timeout++
		events = append(events, Event{Kind: EventTimeout, Status: StatusDown, Timestamp: ts})
		err = nil
	case err != nil:
		m.last.Error = ts
		m.counts.Error++
		events = append(events, Event{Kind: EventError, Status: StatusDown, Timestamp: ts, Err: err})
	case up:
		status = StatusUp
	}

	if status == StatusUp {
		m.last.Up = ts
		m.counts.Up++
	} else {
		m.last.Down = ts
		m.counts.Down++
	}

	events = append(events, Event{Kind: EventResult, Status: status, Timestamp: ts, Err: err})

	if status != m.status {
		events = append(events, m.transition(status, ts)...)
	}
	return events
}

// transition moves to status at ts. Caller must hold mu.
func (m *Monitor) transition(status Status, ts time.Time) []Event {
	previous := m.status
	m.status = status

	var since time.Time
	if status == StatusUp {
		since = m.upSinceLocked()
	} else {
		since = m.downSinceLocked()
	}
	change := Event{
		Kind:      EventChange,
		Status:    status,
		Timestamp: ts,
		Since:     since,
		For:       elapsed(since, ts),
	}

	events := []Event{change}
	if previous == StatusUp && status != StatusUp {
		down := change
		down.Kind = EventDown
		events = append(events, down)
	}
	if previous != StatusUp && status == StatusUp {
		up := change
		up.Kind = EventUp
		events = append(events, up)
	}

	m.changedAt = ts
	m.history.add(Transition{Status: status, Timestamp: ts})
	return events
}

func (m *Monitor) upSinceLocked() time.Time {
	if m.status != StatusUp {
		return time.Time{}
	}
	return m.changedAt
}

// downSinceLocked falls back to the construction time: a monitor that has
// never changed status has been down since it was created.
func (m *Monitor) downSinceLocked() time.Time {
	if m.status == StatusUp {
		return time.Time{}
	}
	if m.changedAt.IsZero() {
		return m.createdAt
	}
	return m.changedAt
}

func elapsed(since, now time.Time) time.Duration {
	if since.IsZero() {
		return 0
	}
	if d := now.Sub(since); d > 0 {
		return d
	}
	return 0
}

// Subscribe registers fn for events of kind and returns a function that
// removes the subscription. Calling the returned function more than once is
// safe.
func (m *Monitor) Subscribe(kind EventKind, fn Listener) (cancel func()) {
	return m.listeners.add(kind, false, fn)
}

// SubscribeAll registers fn for every event kind.
func (m *Monitor) SubscribeAll(fn Listener) (cancel func()) {
	return m.listeners.add(0, true, fn)
}

// ID returns the unique identifier generated for this monitor.
func (m *Monitor) ID() string {
	return m.id
}

// Name returns the configured name.
func (m *Monitor) Name() string {
	return m.cfg.Name
}

// Config returns the effective configuration, defaults applied.
func (m *Monitor) Config() Config {
	return m.cfg
}

// Running reports whether the monitor is ticking.
func (m *Monitor) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Status returns the current status.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsUp reports whether the status is StatusUp.
func (m *Monitor) IsUp() bool {
	return m.Status() == StatusUp
}

// IsDown reports whether the status is StatusDown.
func (m *Monitor) IsDown() bool {
	return !m.IsUp()
}

// UpSince returns when the monitor last went up, or the zero time if it is down.
func (m *Monitor) UpSince() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upSinceLocked()
}

// DownSince returns when the monitor last went down, or the zero time if it is up.
func (m *Monitor) DownSince() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.downSinceLocked()
}

// UpFor returns how long the monitor has been up, or 0 if it is down.
func (m *Monitor) UpFor() time.Duration {
	return elapsed(m.UpSince(), m.now())
}

// DownFor returns how long the monitor has been down, or 0 if it is up.
func (m *Monitor) DownFor() time.Duration {
	return elapsed(m.DownSince(), m.now())
}

// ChangedAt returns the time of the last transition, or the zero time if the
// status never changed.
func (m *Monitor) ChangedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.changedAt
}

// Counts returns a copy of the outcome counters.
func (m *Monitor) Counts() Counts {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts
}

// LastSeen returns a copy of the last-seen timestamps.
func (m *Monitor) LastSeen() LastSeen {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// History returns the retained transitions, oldest first.
func (m *Monitor) History() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history.list()
}

// Transitions returns the number of transitions since construction,
// including any no longer retained in History.
func (m *Monitor) Transitions() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history.total
}

// Snapshot is a consistent, point-in-time view of a monitor.
type Snapshot struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Running     bool          `json:"running"`
	Since       time.Time     `json:"since"`
	For         time.Duration `json:"for"`
	ChangedAt   time.Time     `json:"changed_at"`
	Counts      Counts        `json:"counts"`
	LastSeen    LastSeen      `json:"last_seen"`
	Transitions int64         `json:"transitions"`
	History     []Transition  `json:"history,omitempty"`
	Interval    time.Duration `json:"interval"`
	Timeout     time.Duration `json:"timeout"`
}

// Snapshot captures the monitor state, including up to historyLimit of the
// most recent transitions. A negative historyLimit includes all retained
// transitions.
func (m *Monitor) Snapshot(historyLimit int) Snapshot {
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	since := m.downSinceLocked()
	if m.status == StatusUp {
		since = m.upSinceLocked()
	}

	return Snapshot{
		ID:          m.id,
		Name:        m.cfg.Name,
		Status:      m.status,
		Running:     m.running,
		Since:       since,
		For:         elapsed(since, now),
		ChangedAt:   m.changedAt,
		Counts:      m.counts,
		LastSeen:    m.last,
		Transitions: m.history.total,
		History:     m.history.last(historyLimit),
		Interval:    m.cfg.Interval,
		Timeout:     m.cfg.Timeout,
	}
}
