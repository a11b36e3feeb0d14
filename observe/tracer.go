package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer creates one span per check.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan is best-effort and must not panic.
type Tracer interface {
	// StartSpan starts the span for one check.
	StartSpan(ctx context.Context, meta MonitorMeta) (context.Context, trace.Span)

	// EndSpan records the outcome and ends the span.
	EndSpan(span trace.Span, up bool, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta MonitorMeta) (context.Context, trace.Span) {
	attrs := meta.attributes()
	if meta.ID != "" {
		attrs = append(attrs, attribute.String("probe.id", meta.ID))
	}
	if meta.Target != "" {
		attrs = append(attrs, attribute.String("probe.target", meta.Target))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, up bool, err error) {
	span.SetAttributes(attribute.Bool("probe.up", up))
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case !up:
		span.SetStatus(codes.Error, "down")
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
