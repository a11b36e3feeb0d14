package observe

import "go.opentelemetry.io/otel/attribute"

// MonitorMeta identifies a monitor in telemetry.
type MonitorMeta struct {
	ID     string // monitor instance ID (optional)
	Name   string // monitor name (required)
	Kind   string // checker kind, e.g. http or redis (optional)
	Target string // probed endpoint as configured, never resolved secrets (optional)
}

// SpanName returns the span name for one check: probe.check.<name>.
func (m MonitorMeta) SpanName() string {
	return "probe.check." + m.Name
}

// Validate reports whether the metadata can be used for telemetry.
func (m MonitorMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingMonitorName
	}
	return nil
}

// attributes returns the low-cardinality attributes shared by spans and
// metrics. The instance ID and target are span and log attributes only.
func (m MonitorMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("probe.name", m.Name)}
	if m.Kind != "" {
		attrs = append(attrs, attribute.String("probe.kind", m.Kind))
	}
	return attrs
}
