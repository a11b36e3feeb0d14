package resilience

// BulkheadConfig configures the bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the number of slots.
	// Default: 1
	MaxConcurrent int
}

// Bulkhead bounds the number of operations running at once. It never waits
// for a slot.
//
// A monitor uses a bulkhead with Config.MaxInFlight slots to drop a tick
// while earlier ones are still racing their check.
type Bulkhead struct {
	slots chan struct{}
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	return &Bulkhead{slots: make(chan struct{}, config.MaxConcurrent)}
}

// TryAcquire takes a slot without waiting. It reports false when the bulkhead
// is full.
func (b *Bulkhead) TryAcquire() bool {
	select {
	case b.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a slot taken by TryAcquire. Releasing an empty bulkhead is a
// no-op.
func (b *Bulkhead) Release() {
	select {
	case <-b.slots:
	default:
	}
}
