package health

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// HTTPCheckerConfig configures the HTTP checker.
type HTTPCheckerConfig struct {
	// URL is the endpoint to request.
	URL string `yaml:"url"`

	// Method is the request method.
	// Default: GET
	Method string `yaml:"method"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers"`

	// MinStatus and MaxStatus bound the accepted response codes.
	// Default: 200..399
	MinStatus int `yaml:"min_status"`
	MaxStatus int `yaml:"max_status"`

	// Contains, when set, must appear in the first 64KiB of the body.
	Contains string `yaml:"contains"`

	// Client is the HTTP client to use.
	// Default: a client without its own timeout; the monitor's deadline applies.
	Client *http.Client `yaml:"-"`
}

const maxBodyScan = 64 << 10

// HTTPChecker probes an HTTP endpoint.
type HTTPChecker struct {
	name   string
	config HTTPCheckerConfig
}

// NewHTTPChecker creates an HTTP checker.
func NewHTTPChecker(name string, config HTTPCheckerConfig) *HTTPChecker {
	if config.Method == "" {
		config.Method = http.MethodGet
	}
	if config.MinStatus == 0 {
		config.MinStatus = 200
	}
	if config.MaxStatus == 0 {
		config.MaxStatus = 399
	}
	if config.Client == nil {
		config.Client = &http.Client{}
	}
	return &HTTPChecker{name: name, config: config}
}

// Name returns the checker name.
func (c *HTTPChecker) Name() string {
	return c.name
}

// Check issues one request and validates status code and body.
func (c *HTTPChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, c.config.Method, c.config.URL, nil)
	if err != nil {
		return Unhealthy("invalid request", err)
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.config.Client.Do(req)
	if err != nil {
		return Unhealthy("request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	details := map[string]any{
		"status_code": resp.StatusCode,
		"latency_ms":  time.Since(start).Milliseconds(),
	}

	if resp.StatusCode < c.config.MinStatus || resp.StatusCode > c.config.MaxStatus {
		return Unhealthy(
			fmt.Sprintf("unexpected status %d", resp.StatusCode),
			fmt.Errorf("%w: status %d outside %d-%d", ErrCheckFailed, resp.StatusCode, c.config.MinStatus, c.config.MaxStatus),
		).WithDetails(details)
	}

	if c.config.Contains != "" {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyScan))
		if err != nil {
			return Unhealthy("reading body failed", err).WithDetails(details)
		}
		if !strings.Contains(string(body), c.config.Contains) {
			return Unhealthy(
				"body does not contain expected content",
				fmt.Errorf("%w: body missing %q", ErrCheckFailed, c.config.Contains),
			).WithDetails(details)
		}
	}

	return Healthy(fmt.Sprintf("%s %d", c.config.Method, resp.StatusCode)).WithDetails(details)
}

// TCPChecker probes that a TCP address accepts connections.
type TCPChecker struct {
	name   string
	addr   string
	dialer net.Dialer
}

// NewTCPChecker creates a TCP checker for addr (host:port).
func NewTCPChecker(name, addr string) *TCPChecker {
	return &TCPChecker{name: name, addr: addr}
}

// Name returns the checker name.
func (c *TCPChecker) Name() string {
	return c.name
}

// Check dials the address and closes the connection.
func (c *TCPChecker) Check(ctx context.Context) Result {
	start := time.Now()
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return Unhealthy(fmt.Sprintf("dial %s failed", c.addr), err)
	}
	_ = conn.Close()

	return Healthy(fmt.Sprintf("%s reachable", c.addr)).WithDetails(map[string]any{
		"latency_ms": time.Since(start).Milliseconds(),
	})
}
