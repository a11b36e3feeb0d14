package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jonwraymond/probewatch/monitor"
)

// DefaultHistoryLimit is the number of transitions included per monitor in
// detailed responses.
const DefaultHistoryLimit = 20

// LivenessHandler returns an HTTP handler for liveness probes.
// It only reports that the process is serving.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler returns an HTTP handler that reports the overall monitor
// status. Monitors are read, never probed, so the handler is cheap.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := agg.OverallStatus(agg.Snapshots(0))

		w.Header().Set("Content-Type", "text/plain")
		switch status {
		case StatusHealthy:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		case StatusDegraded:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("DEGRADED"))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("UNHEALTHY"))
		}
	}
}

// HealthResponse is the JSON body of the detailed endpoint.
type HealthResponse struct {
	Status    string                     `json:"status"`
	Timestamp string                     `json:"timestamp"`
	Monitors  map[string]MonitorResponse `json:"monitors,omitempty"`
}

// MonitorResponse is the JSON form of a monitor snapshot.
type MonitorResponse struct {
	ID          string               `json:"id"`
	Status      string               `json:"status"`
	Running     bool                 `json:"running"`
	Since       string               `json:"since,omitempty"`
	For         string               `json:"for"`
	Interval    string               `json:"interval"`
	Timeout     string               `json:"timeout"`
	Counts      monitor.Counts       `json:"counts"`
	LastSeen    map[string]string    `json:"last_seen"`
	Transitions int64                `json:"transitions"`
	History     []TransitionResponse `json:"history,omitempty"`
}

// TransitionResponse is the JSON form of a history entry.
type TransitionResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// NewMonitorResponse converts a snapshot for JSON output.
func NewMonitorResponse(s monitor.Snapshot) MonitorResponse {
	last := map[string]string{}
	for k, t := range map[string]time.Time{
		"up":      s.LastSeen.Up,
		"down":    s.LastSeen.Down,
		"timeout": s.LastSeen.Timeout,
		"error":   s.LastSeen.Error,
	} {
		if v := formatTime(t); v != "" {
			last[k] = v
		}
	}

	resp := MonitorResponse{
		ID:          s.ID,
		Status:      s.Status.String(),
		Running:     s.Running,
		Since:       formatTime(s.Since),
		For:         s.For.String(),
		Interval:    s.Interval.String(),
		Timeout:     s.Timeout.String(),
		Counts:      s.Counts,
		LastSeen:    last,
		Transitions: s.Transitions,
	}
	for _, tr := range s.History {
		resp.History = append(resp.History, TransitionResponse{
			Status:    tr.Status.String(),
			Timestamp: formatTime(tr.Timestamp),
		})
	}
	return resp
}

func statusCode(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// DetailedHandler returns an HTTP handler with a JSON snapshot of every monitor.
func DetailedHandler(agg *Aggregator, historyLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snaps := agg.Snapshots(historyLimit)
		status := agg.OverallStatus(snaps)

		response := HealthResponse{
			Status:    status.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Monitors:  make(map[string]MonitorResponse, len(snaps)),
		}
		for name, s := range snaps {
			response.Monitors[name] = NewMonitorResponse(s)
		}

		writeJSON(w, statusCode(status), response)
	}
}

// SingleMonitorHandler returns an HTTP handler for one named monitor.
func SingleMonitorHandler(agg *Aggregator, name string, historyLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveMonitor(w, agg, name, historyLimit)
	}
}

// MonitorHandler returns an HTTP handler for the monitor named by the "name"
// path wildcard, as registered by RegisterHandlers under /health/{name}.
func MonitorHandler(agg *Aggregator, historyLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveMonitor(w, agg, r.PathValue("name"), historyLimit)
	}
}

func serveMonitor(w http.ResponseWriter, agg *Aggregator, name string, historyLimit int) {
	m, err := agg.Monitor(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	snap := m.Snapshot(historyLimit)
	code := http.StatusOK
	if snap.Status != monitor.StatusUp {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, NewMonitorResponse(snap))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// HandlerOption configures RegisterHandlers.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	middleware   []func(http.Handler) http.Handler
	historyLimit int
}

// WithMiddleware wraps the status endpoints (not /healthz) with mw. Use it to
// put the detailed endpoints behind authentication.
func WithMiddleware(mw func(http.Handler) http.Handler) HandlerOption {
	return func(c *handlerConfig) {
		c.middleware = append(c.middleware, mw)
	}
}

// WithHistoryLimit sets how many transitions detailed responses include.
// Default: DefaultHistoryLimit
func WithHistoryLimit(n int) HandlerOption {
	return func(c *handlerConfig) {
		c.historyLimit = n
	}
}

// RegisterHandlers registers the health endpoints on mux:
//
//	/healthz            liveness
//	/readyz             overall status
//	/health             detailed JSON for every monitor
//	/health/{name}      detailed JSON for one monitor
//
// The per-monitor route looks the name up on every request, so monitors
// registered later are served too. Names are matched after unescaping, so
// "db primary" is reached at /health/db%20primary.
func RegisterHandlers(mux *http.ServeMux, agg *Aggregator, opts ...HandlerOption) {
	cfg := handlerConfig{historyLimit: DefaultHistoryLimit}
	for _, opt := range opts {
		opt(&cfg)
	}

	wrap := func(h http.Handler) http.Handler {
		for i := len(cfg.middleware) - 1; i >= 0; i-- {
			h = cfg.middleware[i](h)
		}
		return h
	}

	mux.Handle("/healthz", LivenessHandler())
	mux.Handle("/readyz", wrap(ReadinessHandler(agg)))
	mux.Handle("/health", wrap(DetailedHandler(agg, cfg.historyLimit)))
	mux.Handle("/health/{name}", wrap(MonitorHandler(agg, cfg.historyLimit)))
}
