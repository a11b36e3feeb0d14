package monitor

import (
	"encoding/json"
	"time"
)

// Status is the externally visible health state.
type Status int

const (
	// StatusDown is the initial status and the status of any failed,
	// timed out or errored check.
	StatusDown Status = iota
	// StatusUp means the last check reported healthy.
	StatusUp
)

// String returns "up" or "down".
func (s Status) String() string {
	if s == StatusUp {
		return "up"
	}
	return "down"
}

// MarshalJSON encodes the status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Counts holds per-outcome counters. They only ever grow.
type Counts struct {
	// Up and Down count the effective status of every processed tick.
	Up   int64 `json:"up"`
	Down int64 `json:"down"`

	// Timeout and Error count the cause of a Down outcome.
	Timeout int64 `json:"timeout"`
	Error   int64 `json:"error"`

	// Skipped counts ticks dropped because MaxInFlight ticks were still racing.
	Skipped int64 `json:"skipped"`
}

// Ticks returns the number of processed ticks.
func (c Counts) Ticks() int64 {
	return c.Up + c.Down
}

// LastSeen holds the time of the most recent outcome of each kind.
// A zero time means the outcome has not happened yet.
type LastSeen struct {
	Up      time.Time `json:"up"`
	Down    time.Time `json:"down"`
	Timeout time.Time `json:"timeout"`
	Error   time.Time `json:"error"`
}

// Transition is a history entry recording a status change.
type Transition struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
