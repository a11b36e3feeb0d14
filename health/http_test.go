package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLivenessHandler(t *testing.T) {
	rec := get(t, LivenessHandler(), "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("liveness = %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		ups      []bool
		wantCode int
		wantBody string
	}{
		{"no monitors", nil, http.StatusOK, "OK"},
		{"all up", []bool{true, true}, http.StatusOK, "OK"},
		{"mixed", []bool{true, false}, http.StatusOK, "DEGRADED"},
		{"all down", []bool{false}, http.StatusServiceUnavailable, "UNHEALTHY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			for i, up := range tt.ups {
				name := string(rune('a' + i))
				agg.Register(name, settledMonitor(t, name, up))
			}

			rec := get(t, ReadinessHandler(agg), "/readyz")
			if rec.Code != tt.wantCode || rec.Body.String() != tt.wantBody {
				t.Fatalf("readiness = %d %q, want %d %q", rec.Code, rec.Body.String(), tt.wantCode, tt.wantBody)
			}
		})
	}
}

func TestDetailedHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Register("api", settledMonitor(t, "api", true))
	agg.Register("db", settledMonitor(t, "db", false))

	rec := get(t, DetailedHandler(agg, DefaultHistoryLimit), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}

	api, ok := resp.Monitors["api"]
	if !ok {
		t.Fatalf("missing api monitor: %+v", resp.Monitors)
	}
	if api.Status != "up" || !api.Running || api.Since == "" {
		t.Errorf("api = %+v", api)
	}
	if api.Counts.Up == 0 || api.LastSeen["up"] == "" {
		t.Errorf("api counts/last seen = %+v %v", api.Counts, api.LastSeen)
	}
	if api.Transitions != 1 || len(api.History) != 1 || api.History[0].Status != "up" {
		t.Errorf("api history = %d %+v", api.Transitions, api.History)
	}

	db := resp.Monitors["db"]
	if db.Status != "down" || db.Transitions != 0 || db.LastSeen["down"] == "" {
		t.Errorf("db = %+v", db)
	}
}

func TestDetailedHandler_Unhealthy(t *testing.T) {
	agg := NewAggregator()
	agg.Register("db", settledMonitor(t, "db", false))

	if rec := get(t, DetailedHandler(agg, 0), "/health"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestSingleMonitorHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Register("api", settledMonitor(t, "api", true))
	agg.Register("db", settledMonitor(t, "db", false))

	if rec := get(t, SingleMonitorHandler(agg, "api", 1), "/health/api"); rec.Code != http.StatusOK {
		t.Errorf("api = %d", rec.Code)
	}
	if rec := get(t, SingleMonitorHandler(agg, "db", 1), "/health/db"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("db = %d", rec.Code)
	}

	agg.Unregister("api")
	rec := get(t, SingleMonitorHandler(agg, "api", 1), "/health/api")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unregistered = %d, want 404", rec.Code)
	}
	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != ErrMonitorNotFound.Error() {
		t.Errorf("error body = %v", body)
	}
}

func TestRegisterHandlers(t *testing.T) {
	agg := NewAggregator()
	agg.Register("api", settledMonitor(t, "api", true))

	denyAll := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Allow") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	mux := http.NewServeMux()
	RegisterHandlers(mux, agg, WithMiddleware(denyAll), WithHistoryLimit(0))

	if rec := get(t, mux, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("/healthz = %d, liveness must not be wrapped", rec.Code)
	}
	for _, path := range []string{"/readyz", "/health", "/health/api"} {
		if rec := get(t, mux, path); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without credentials = %d, want 401", path, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/health/api", nil)
	req.Header.Set("X-Allow", "1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/health/api with credentials = %d", rec.Code)
	}
	var resp MonitorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.History) != 0 {
		t.Errorf("history limit 0 returned %d entries", len(resp.History))
	}
}

func TestRegisterHandlers_MonitorNames(t *testing.T) {
	names := map[string]string{
		"db primary": "/health/db%20primary",
		"cache{1}":   "/health/cache%7B1%7D",
		"late":       "/health/late",
	}
	for name := range names {
		if err := (MonitorConfig{Name: name, Kind: KindMemory}).Validate(); err != nil {
			t.Fatalf("Validate(%q) error = %v", name, err)
		}
	}

	agg := NewAggregator()
	agg.Register("db primary", settledMonitor(t, "db primary", true))
	agg.Register("cache{1}", settledMonitor(t, "cache{1}", true))

	mux := http.NewServeMux()
	RegisterHandlers(mux, agg)

	// registered after the routes
	agg.Register("late", settledMonitor(t, "late", false))

	wantCode := map[string]int{"db primary": http.StatusOK, "cache{1}": http.StatusOK, "late": http.StatusServiceUnavailable}
	for name, path := range names {
		rec := get(t, mux, path)
		if rec.Code != wantCode[name] {
			t.Errorf("%s = %d, want %d", path, rec.Code, wantCode[name])
			continue
		}
		var resp MonitorResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if resp.ID == "" {
			t.Errorf("%s: empty monitor id", path)
		}
	}

	if rec := get(t, mux, "/health/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("/health/missing = %d, want 404", rec.Code)
	}
}
