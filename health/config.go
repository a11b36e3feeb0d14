package health

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/probewatch/monitor"
	"github.com/jonwraymond/probewatch/secret"
)

// Checker kinds understood by BuildChecker.
const (
	KindHTTP   = "http"
	KindTCP    = "tcp"
	KindRedis  = "redis"
	KindMemory = "memory"
)

// MonitorConfig describes one monitor in a fleet file.
//
//	monitors:
//	  - name: api
//	    kind: http
//	    target: https://api.internal/healthz
//	    interval: 10s
//	    timeout: 2s
//	    http:
//	      contains: ok
//	  - name: cache
//	    kind: redis
//	    target: ${REDIS_ADDR}
//	    redis:
//	      password: secretref:file:redis-password
type MonitorConfig struct {
	Name string `yaml:"name"`

	// Kind selects the checker: http, tcp, redis or memory.
	Kind string `yaml:"kind"`

	// Target is the URL (http) or host:port (tcp, redis).
	Target string `yaml:"target"`

	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
	History     int           `yaml:"history"`
	MaxInFlight int           `yaml:"max_in_flight"`

	HTTP   HTTPCheckerConfig   `yaml:"http"`
	Redis  RedisCheckerConfig  `yaml:"redis"`
	Memory MemoryCheckerConfig `yaml:"memory"`
}

// RedisCheckerConfig holds connection settings for a redis monitor.
type RedisCheckerConfig struct {
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Validate reports configuration errors, wrapping ErrInvalidConfig or
// ErrUnknownKind.
func (c MonitorConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if c.Interval < 0 || c.Timeout < 0 {
		return fmt.Errorf("%w: %s: negative interval or timeout", ErrInvalidConfig, c.Name)
	}
	if c.MaxInFlight < 0 {
		return fmt.Errorf("%w: %s: negative max_in_flight", ErrInvalidConfig, c.Name)
	}

	switch c.Kind {
	case KindHTTP:
		if c.Target == "" && c.HTTP.URL == "" {
			return fmt.Errorf("%w: %s: http monitor needs a target", ErrInvalidConfig, c.Name)
		}
	case KindTCP, KindRedis:
		if c.Target == "" {
			return fmt.Errorf("%w: %s: %s monitor needs a target", ErrInvalidConfig, c.Name, c.Kind)
		}
	case KindMemory:
	default:
		return fmt.Errorf("%w: %s: %q", ErrUnknownKind, c.Name, c.Kind)
	}
	return nil
}

// MonitorSettings returns the monitor.Config part of c.
func (c MonitorConfig) MonitorSettings() monitor.Config {
	return monitor.Config{
		Name:            c.Name,
		Interval:        c.Interval,
		Timeout:         c.Timeout,
		HistoryCapacity: c.History,
		MaxInFlight:     c.MaxInFlight,
	}
}

// ParseMonitors decodes a YAML document with a top-level "monitors" list and
// validates every entry. Unknown fields are rejected.
func ParseMonitors(data []byte) ([]MonitorConfig, error) {
	var doc struct {
		Monitors []MonitorConfig `yaml:"monitors"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := ValidateMonitors(doc.Monitors); err != nil {
		return nil, err
	}
	return doc.Monitors, nil
}

// ValidateMonitors validates each config and rejects duplicate names.
func ValidateMonitors(cfgs []MonitorConfig) error {
	var errs []error
	seen := make(map[string]bool, len(cfgs))
	for _, c := range cfgs {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[c.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate monitor name %q", ErrInvalidConfig, c.Name))
		}
		seen[c.Name] = true
	}
	return errors.Join(errs...)
}

// BuildOption configures BuildMonitor and BuildAggregator.
type BuildOption func(*buildConfig)

type buildConfig struct {
	resolver *secret.Resolver
	wrap     func(MonitorConfig, monitor.Check) monitor.Check
	options  []monitor.Option
}

// WithResolver resolves environment variables and secret references in
// targets, URLs, headers and passwords. Without it only the environment is
// expanded.
func WithResolver(r *secret.Resolver) BuildOption {
	return func(c *buildConfig) {
		c.resolver = r
	}
}

// WithCheckWrapper decorates every built check before the monitor is created.
func WithCheckWrapper(wrap func(MonitorConfig, monitor.Check) monitor.Check) BuildOption {
	return func(c *buildConfig) {
		c.wrap = wrap
	}
}

// WithMonitorOptions passes opts to every monitor.New call.
func WithMonitorOptions(opts ...monitor.Option) BuildOption {
	return func(c *buildConfig) {
		c.options = append(c.options, opts...)
	}
}

// BuildChecker creates the checker described by cfg after resolving its
// string fields. The returned checker implements io.Closer when it owns a
// connection.
func BuildChecker(ctx context.Context, cfg MonitorConfig, r *secret.Resolver) (Checker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	target, err := r.ResolveValue(ctx, cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("%s: target: %w", cfg.Name, err)
	}

	switch cfg.Kind {
	case KindHTTP:
		hc := cfg.HTTP
		if hc.URL == "" {
			hc.URL = target
		} else if hc.URL, err = r.ResolveValue(ctx, hc.URL); err != nil {
			return nil, fmt.Errorf("%s: url: %w", cfg.Name, err)
		}
		if hc.Headers, err = r.ResolveMap(ctx, hc.Headers); err != nil {
			return nil, fmt.Errorf("%s: headers: %w", cfg.Name, err)
		}
		return NewHTTPChecker(cfg.Name, hc), nil

	case KindTCP:
		return NewTCPChecker(cfg.Name, target), nil

	case KindRedis:
		password, err := r.ResolveValue(ctx, cfg.Redis.Password)
		if err != nil {
			return nil, fmt.Errorf("%s: redis password: %w", cfg.Name, err)
		}
		client := redis.NewClient(&redis.Options{
			Addr:     target,
			Password: password,
			DB:       cfg.Redis.DB,
		})
		return newOwnedRedisChecker(cfg.Name, client), nil

	default: // KindMemory
		return NewMemoryChecker(cfg.Memory), nil
	}
}

// BuildMonitor creates a stopped monitor for cfg. The returned closer releases
// the checker's connections and must be called once the monitor is stopped.
func BuildMonitor(ctx context.Context, cfg MonitorConfig, opts ...BuildOption) (*monitor.Monitor, io.Closer, error) {
	var bc buildConfig
	for _, opt := range opts {
		opt(&bc)
	}
	return bc.build(ctx, cfg)
}

func (bc *buildConfig) build(ctx context.Context, cfg MonitorConfig) (*monitor.Monitor, io.Closer, error) {
	checker, err := BuildChecker(ctx, cfg, bc.resolver)
	if err != nil {
		return nil, nil, err
	}

	check := AsCheck(checker)
	if bc.wrap != nil {
		check = bc.wrap(cfg, check)
	}

	closer, ok := checker.(io.Closer)
	if !ok {
		closer = nopCloser{}
	}
	return monitor.New(check, cfg.MonitorSettings(), bc.options...), closer, nil
}

// BuildAggregator builds a monitor per config and registers it under its
// name. Monitors are not started. Aggregator.Close stops them and releases
// their connections.
func BuildAggregator(ctx context.Context, cfgs []MonitorConfig, opts ...BuildOption) (*Aggregator, error) {
	if err := ValidateMonitors(cfgs); err != nil {
		return nil, err
	}

	var bc buildConfig
	for _, opt := range opts {
		opt(&bc)
	}

	agg := NewAggregator()
	for _, cfg := range cfgs {
		m, closer, err := bc.build(ctx, cfg)
		if err != nil {
			_ = agg.Close()
			return nil, err
		}
		agg.Register(cfg.Name, m)
		agg.own(closer)
	}
	return agg, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
