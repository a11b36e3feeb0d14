package health

import (
	"errors"
	"io"
	"sync"

	"github.com/jonwraymond/probewatch/monitor"
)

// Aggregator is a named set of monitors with a combined status.
type Aggregator struct {
	mu       sync.RWMutex
	monitors map[string]*monitor.Monitor
	order    []string // registration order
	closers  []io.Closer
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{monitors: make(map[string]*monitor.Monitor)}
}

// Register adds m under name, replacing any monitor already registered there.
// A replaced monitor is stopped.
func (a *Aggregator) Register(name string, m *monitor.Monitor) {
	a.mu.Lock()
	old, exists := a.monitors[name]
	if !exists {
		a.order = append(a.order, name)
	}
	a.monitors[name] = m
	a.mu.Unlock()

	if exists && old != m {
		old.Stop()
	}
}

// Unregister stops and removes the monitor registered under name.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	m, ok := a.monitors[name]
	delete(a.monitors, name)
	for i, n := range a.order {
		if n == name {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	a.mu.Unlock()

	if ok {
		m.Stop()
	}
}

// Names returns registered names in registration order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.order))
	copy(names, a.order)
	return names
}

// Monitor returns the monitor registered under name.
func (a *Aggregator) Monitor(name string) (*monitor.Monitor, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	m, ok := a.monitors[name]
	if !ok {
		return nil, ErrMonitorNotFound
	}
	return m, nil
}

func (a *Aggregator) list() []*monitor.Monitor {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*monitor.Monitor, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.monitors[name])
	}
	return out
}

// StartAll starts every registered monitor that is not running.
func (a *Aggregator) StartAll() {
	for _, m := range a.list() {
		if !m.Running() {
			m.Start()
		}
	}
}

// StopAll stops every registered monitor.
func (a *Aggregator) StopAll() {
	for _, m := range a.list() {
		m.Stop()
	}
}

// Snapshots returns a snapshot per monitor, keyed by registered name, each
// with up to historyLimit recent transitions.
func (a *Aggregator) Snapshots(historyLimit int) map[string]monitor.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string]monitor.Snapshot, len(a.monitors))
	for name, m := range a.monitors {
		out[name] = m.Snapshot(historyLimit)
	}
	return out
}

// OverallStatus combines snapshots: healthy when every monitor is up,
// unhealthy when none is, degraded otherwise. No monitors is healthy.
func (a *Aggregator) OverallStatus(snaps map[string]monitor.Snapshot) Status {
	if len(snaps) == 0 {
		return StatusHealthy
	}

	up := 0
	for _, s := range snaps {
		if s.Status == monitor.StatusUp {
			up++
		}
	}

	switch up {
	case len(snaps):
		return StatusHealthy
	case 0:
		return StatusUnhealthy
	default:
		return StatusDegraded
	}
}

func (a *Aggregator) own(c io.Closer) {
	a.mu.Lock()
	a.closers = append(a.closers, c)
	a.mu.Unlock()
}

// Close stops every monitor and releases resources acquired by
// BuildAggregator.
func (a *Aggregator) Close() error {
	a.StopAll()

	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
