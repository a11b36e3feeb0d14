// Package observe provides tracing, metrics and structured logging for
// monitors.
//
// It is an instrumentation library: monitors and checkers never log or record
// metrics themselves. Instead an Instrumentation wraps checks and subscribes
// to monitor events:
//
//	obs, err := observe.NewObserver(ctx, observe.Config{
//	    ServiceName: "probewatch",
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	})
//	inst, err := observe.InstrumentationFromObserver(obs)
//
//	meta := observe.MonitorMeta{Name: "api", Kind: "http"}
//	m := monitor.New(inst.WrapCheck(meta, check), monitor.Config{Name: "api"})
//	detach := inst.Attach(m, meta)
//
// # Telemetry
//
// Spans are named probe.check.<name>. Metrics are probe.check.total,
// probe.check.errors, probe.check.timeouts, probe.check.duration_ms,
// probe.transitions and the probe.status gauge. Log entries are JSON objects
// carrying monitor.name and, when known, monitor.id, monitor.kind and
// monitor.target. Fields named in RedactedFields are never written.
package observe
