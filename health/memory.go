package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig configures the memory checker.
type MemoryCheckerConfig struct {
	// WarningThreshold is the heap/limit ratio reported as degraded.
	// Default: 0.8
	WarningThreshold float64 `yaml:"warning"`

	// CriticalThreshold is the heap/limit ratio reported as unhealthy.
	// Default: 0.95
	CriticalThreshold float64 `yaml:"critical"`

	// Limit is the heap size, in bytes, the ratios are measured against.
	// Default: 0 (memory obtained from the OS, MemStats.Sys)
	Limit uint64 `yaml:"limit"`
}

// MemoryChecker reports the host process's own heap usage.
type MemoryChecker struct {
	config MemoryCheckerConfig
}

// NewMemoryChecker creates a memory checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = config.WarningThreshold
	}
	return &MemoryChecker{config: config}
}

// Name returns "memory".
func (m *MemoryChecker) Name() string {
	return "memory"
}

// Check compares the live heap against the configured limit.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context done", err)
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	limit := m.config.Limit
	if limit == 0 {
		limit = stats.Sys
	}
	if limit == 0 {
		return Healthy("memory stats unavailable")
	}

	ratio := float64(stats.HeapAlloc) / float64(limit)
	details := map[string]any{
		"heap_alloc":    stats.HeapAlloc,
		"limit":         limit,
		"usage_percent": ratio * 100,
		"num_gc":        stats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	switch {
	case ratio >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("heap at %.1f%% of limit", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("heap at %.1f%% of limit", ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("heap at %.1f%% of limit", ratio*100)).WithDetails(details)
	}
}
