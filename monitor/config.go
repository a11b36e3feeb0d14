package monitor

import (
	"context"
	"time"
)

// Defaults applied by New.
const (
	DefaultInterval        = 5 * time.Second
	DefaultHistoryCapacity = 1000
)

// Check reports whether the watched dependency is healthy.
//
// The context is canceled once the tick has an outcome, so a check that
// outlives its timeout can stop early. Returning an error counts as Down.
type Check func(ctx context.Context) (bool, error)

// Config configures a Monitor. It is copied by New and never changes after.
type Config struct {
	// Name identifies the monitor in snapshots and telemetry.
	Name string `yaml:"name"`

	// Interval is the tick period.
	// Default: 5 seconds
	Interval time.Duration `yaml:"interval"`

	// Timeout is the per-tick deadline for the check.
	// Default: Interval
	Timeout time.Duration `yaml:"timeout"`

	// Start begins ticking as soon as the monitor is constructed.
	Start bool `yaml:"start"`

	// HistoryCapacity is the number of transitions retained.
	// Default: 1000. A negative value keeps every transition.
	HistoryCapacity int `yaml:"history"`

	// MaxInFlight caps concurrently racing ticks; extra ticks are skipped and
	// counted in Counts.Skipped.
	// Default: 0 (no cap, ticks may overlap)
	MaxInFlight int `yaml:"max_in_flight"`
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = c.Interval
	}
	if c.HistoryCapacity == 0 {
		c.HistoryCapacity = DefaultHistoryCapacity
	}
	if c.MaxInFlight < 0 {
		c.MaxInFlight = 0
	}
	return c
}

// Option configures optional Monitor behavior.
type Option func(*Monitor)

// WithClock replaces time.Now as the monitor's time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// WithListener subscribes fn to kind at construction time.
func WithListener(kind EventKind, fn Listener) Option {
	return func(m *Monitor) {
		m.listeners.add(kind, false, fn)
	}
}

// OnStart subscribes fn to start events.
func OnStart(fn Listener) Option { return WithListener(EventStart, fn) }

// OnStop subscribes fn to stop events.
func OnStop(fn Listener) Option { return WithListener(EventStop, fn) }

// OnUp subscribes fn to up transitions.
func OnUp(fn Listener) Option { return WithListener(EventUp, fn) }

// OnDown subscribes fn to down transitions.
func OnDown(fn Listener) Option { return WithListener(EventDown, fn) }

// OnChange subscribes fn to every transition.
func OnChange(fn Listener) Option { return WithListener(EventChange, fn) }

// OnTimeout subscribes fn to check timeouts.
func OnTimeout(fn Listener) Option { return WithListener(EventTimeout, fn) }

// OnResult subscribes fn to every tick result.
func OnResult(fn Listener) Option { return WithListener(EventResult, fn) }

// OnError subscribes fn to check errors.
func OnError(fn Listener) Option { return WithListener(EventError, fn) }
