package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/probewatch/health"
	"github.com/jonwraymond/probewatch/monitor"
)

func tcpTarget(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	return ln.Addr().String()
}

func testConfig(t *testing.T, extra string) Config {
	t.Helper()
	doc := extra + `
observe:
  metrics: {enabled: true, exporter: prometheus}
monitors:
  - name: db
    kind: tcp
    target: ` + tcpTarget(t) + `
    interval: 10ms
    timeout: 200ms
`
	cfg, err := parseConfig([]byte(doc))
	if err != nil {
		t.Fatalf("parseConfig() error = %v", err)
	}
	return cfg
}

func get(h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func waitUp(t *testing.T, agg *health.Aggregator, name string) {
	t.Helper()
	m, err := agg.Monitor(name)
	if err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for m.Status() != monitor.StatusUp {
		if time.Now().After(deadline) {
			t.Fatalf("%s never came up", name)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestApp_Handler(t *testing.T) {
	ctx := context.Background()
	a, err := newApp(ctx, testConfig(t, ""))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	h, err := a.handler(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if rec := get(h, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before start = %d", rec.Code)
	}

	a.agg.StartAll()
	waitUp(t, a.agg, "db")

	if rec := get(h, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := get(h, "/health/db"); rec.Code != http.StatusOK {
		t.Errorf("health/db = %d %s", rec.Code, rec.Body.String())
	}

	rec := get(h, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "probe_check_total") {
		t.Errorf("metrics missing probe_check_total:\n%s", rec.Body.String())
	}
}

func TestApp_HandlerWithAuth(t *testing.T) {
	t.Setenv("PROBEWATCH_TEST_KEY", "let-me-in")
	ctx := context.Background()

	a, err := newApp(ctx, testConfig(t, `
auth:
  api_keys:
    - principal: ops
      key: secretref:env:PROBEWATCH_TEST_KEY
`))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	h, err := a.handler(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if rec := get(h, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz must stay open, got %d", rec.Code)
	}
	if rec := get(h, "/health"); rec.Code != http.StatusUnauthorized {
		t.Errorf("health without key = %d", rec.Code)
	}
	if rec := get(h, "/health", "X-API-Key", "let-me-in"); rec.Code == http.StatusUnauthorized {
		t.Errorf("health with key = %d", rec.Code)
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	doc := `
server:
  addr: 127.0.0.1:0
  shutdown_timeout: 1s
monitors:
  - name: self
    kind: memory
    interval: 10ms
`
	path := filepath.Join(t.TempDir(), "probewatch.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, path) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}
