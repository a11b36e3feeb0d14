// Package health provides ready-made checks for monitors, a named registry of
// monitors, and the HTTP endpoints that expose their state.
//
// # Checkers
//
// A Checker probes one dependency and returns a graded Result: Healthy,
// Degraded, or Unhealthy. AsCheck adapts a Checker to monitor.Check, treating
// degraded results as up:
//
//	checker := health.NewHTTPChecker("api", health.HTTPCheckerConfig{
//	    URL:      "https://api.internal/healthz",
//	    Contains: "ok",
//	})
//	m := monitor.New(health.AsCheck(checker), monitor.Config{Name: "api"})
//
// Available checkers are MemoryChecker, HTTPChecker, TCPChecker and
// RedisChecker.
//
// # Aggregating Monitors
//
// An Aggregator holds monitors by name and derives an overall status: healthy
// when every monitor is up, unhealthy when none is, degraded otherwise.
//
//	agg := health.NewAggregator()
//	agg.Register("api", apiMonitor)
//	agg.Register("cache", cacheMonitor)
//	agg.StartAll()
//	defer agg.StopAll()
//
// # Fleet Files
//
// ParseMonitors reads a YAML list of MonitorConfig and BuildAggregator turns
// it into registered, stopped monitors. Strings may reference environment
// variables and secrets (see package secret).
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg, health.WithMiddleware(auth.Middleware(authn)))
//
// Handlers only read monitor state; they never run checks.
package health
