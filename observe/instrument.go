package observe

import (
	"context"
	"time"

	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/probewatch/monitor"
)

// Instrumentation adds tracing, metrics and logging to monitors.
//
// Contract:
//   - Concurrency: safe for concurrent use; one Instrumentation may serve many
//     monitors.
//   - Errors: check errors are recorded and returned unchanged.
type Instrumentation struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstrumentation creates an Instrumentation. Nil components are replaced
// by no-ops.
func NewInstrumentation(tracer Tracer, metrics Metrics, logger Logger) *Instrumentation {
	if tracer == nil {
		tracer = NewTracer(tracenoop.NewTracerProvider().Tracer("noop"))
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Instrumentation{tracer: tracer, metrics: metrics, logger: logger}
}

// InstrumentationFromObserver builds an Instrumentation from obs.
func InstrumentationFromObserver(obs Observer) (*Instrumentation, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewInstrumentation(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// WrapCheck returns a check that runs check inside a span and records its
// duration and outcome. A check that returns after the monitor abandoned it
// (its context is already done) is recorded without counting an error.
func (i *Instrumentation) WrapCheck(meta MonitorMeta, check monitor.Check) monitor.Check {
	logger := i.logger.WithMonitor(meta)

	return func(ctx context.Context) (bool, error) {
		ctx, span := i.tracer.StartSpan(ctx, meta)
		start := time.Now()

		up, err := check(ctx)

		duration := time.Since(start)
		abandoned := ctx.Err() != nil
		i.tracer.EndSpan(span, up, err)

		recorded := err
		if abandoned {
			recorded = nil
		}
		i.metrics.RecordCheck(ctx, meta, duration, up, recorded)

		fields := []Field{
			{Key: "duration_ms", Value: float64(duration) / float64(time.Millisecond)},
			{Key: "up", Value: up},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err})
		}
		if abandoned {
			logger.Debug(ctx, "check finished after deadline", fields...)
		} else {
			logger.Debug(ctx, "check completed", fields...)
		}

		return up, err
	}
}

// Attach subscribes to m's events: transitions, timeouts and errors are
// logged, and the transition counter and status gauge are kept current.
// Empty ID and Name fields of meta are taken from m. The returned function
// removes the subscription.
func (i *Instrumentation) Attach(m *monitor.Monitor, meta MonitorMeta) (detach func()) {
	if meta.ID == "" {
		meta.ID = m.ID()
	}
	if meta.Name == "" {
		meta.Name = m.Name()
	}
	logger := i.logger.WithMonitor(meta)
	timeout := m.Config().Timeout

	return m.SubscribeAll(func(e monitor.Event) {
		ctx := context.Background()

		switch e.Kind {
		case monitor.EventStart:
			i.metrics.RecordStatus(ctx, meta, e.Status)
			logger.Info(ctx, "monitor started", Field{Key: "status", Value: e.Status.String()})

		case monitor.EventStop:
			logger.Info(ctx, "monitor stopped", Field{Key: "status", Value: e.Status.String()})

		case monitor.EventChange:
			i.metrics.RecordTransition(ctx, meta, e.Status)
			i.metrics.RecordStatus(ctx, meta, e.Status)

			fields := []Field{
				{Key: "status", Value: e.Status.String()},
				{Key: "previous_since", Value: e.Since},
				{Key: "previous_for_ms", Value: e.For.Milliseconds()},
			}
			if e.Status == monitor.StatusUp {
				logger.Info(ctx, "monitor up", fields...)
			} else {
				logger.Warn(ctx, "monitor down", fields...)
			}

		case monitor.EventTimeout:
			i.metrics.RecordTimeout(ctx, meta)
			logger.Warn(ctx, "check timed out", Field{Key: "timeout_ms", Value: timeout.Milliseconds()})

		case monitor.EventError:
			logger.Warn(ctx, "check failed", Field{Key: "error", Value: e.Err})
		}
	})
}
