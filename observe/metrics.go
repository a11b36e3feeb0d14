package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/probewatch/monitor"
)

// Metrics records probe telemetry.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCheck records one completed check invocation.
	RecordCheck(ctx context.Context, meta MonitorMeta, duration time.Duration, up bool, err error)

	// RecordTimeout records a tick whose check lost the race to its deadline.
	RecordTimeout(ctx context.Context, meta MonitorMeta)

	// RecordTransition records a status change.
	RecordTransition(ctx context.Context, meta MonitorMeta, status monitor.Status)

	// RecordStatus sets the current status gauge (1 up, 0 down).
	RecordStatus(ctx context.Context, meta MonitorMeta, status monitor.Status)
}

type metricsImpl struct {
	checks      metric.Int64Counter
	errors      metric.Int64Counter
	timeouts    metric.Int64Counter
	duration    metric.Float64Histogram
	transitions metric.Int64Counter
	status      metric.Int64Gauge
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	m := &metricsImpl{}
	var err error

	if m.checks, err = meter.Int64Counter("probe.check.total",
		metric.WithDescription("Total number of completed checks"),
		metric.WithUnit("{check}"),
	); err != nil {
		return nil, err
	}
	if m.errors, err = meter.Int64Counter("probe.check.errors",
		metric.WithDescription("Checks that returned an error"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if m.timeouts, err = meter.Int64Counter("probe.check.timeouts",
		metric.WithDescription("Ticks whose check did not finish before the timeout"),
		metric.WithUnit("{timeout}"),
	); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram("probe.check.duration_ms",
		metric.WithDescription("Check duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.transitions, err = meter.Int64Counter("probe.transitions",
		metric.WithDescription("Status transitions"),
		metric.WithUnit("{transition}"),
	); err != nil {
		return nil, err
	}
	if m.status, err = meter.Int64Gauge("probe.status",
		metric.WithDescription("Current monitor status, 1 up and 0 down"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metricsImpl) RecordCheck(ctx context.Context, meta MonitorMeta, duration time.Duration, up bool, err error) {
	attrs := append(meta.attributes(), attribute.Bool("probe.up", up))
	opt := metric.WithAttributes(attrs...)

	m.checks.Add(ctx, 1, opt)
	if err != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(meta.attributes()...))
	}
	m.duration.Record(ctx, float64(duration)/float64(time.Millisecond), opt)
}

func (m *metricsImpl) RecordTimeout(ctx context.Context, meta MonitorMeta) {
	m.timeouts.Add(ctx, 1, metric.WithAttributes(meta.attributes()...))
}

func (m *metricsImpl) RecordTransition(ctx context.Context, meta MonitorMeta, status monitor.Status) {
	attrs := append(meta.attributes(), attribute.String("probe.status", status.String()))
	m.transitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordStatus(ctx context.Context, meta MonitorMeta, status monitor.Status) {
	var v int64
	if status == monitor.StatusUp {
		v = 1
	}
	m.status.Record(ctx, v, metric.WithAttributes(meta.attributes()...))
}

type noopMetrics struct{}

func (noopMetrics) RecordCheck(context.Context, MonitorMeta, time.Duration, bool, error) {}
func (noopMetrics) RecordTimeout(context.Context, MonitorMeta)                           {}
func (noopMetrics) RecordTransition(context.Context, MonitorMeta, monitor.Status)        {}
func (noopMetrics) RecordStatus(context.Context, MonitorMeta, monitor.Status)            {}
