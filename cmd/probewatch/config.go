package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/probewatch/auth"
	"github.com/jonwraymond/probewatch/health"
	"github.com/jonwraymond/probewatch/observe"
	"github.com/jonwraymond/probewatch/secret"
)

// Config is the probewatch configuration file.
//
//	server:
//	  addr: :8080
//	observe:
//	  service_name: probewatch
//	  metrics: {enabled: true, exporter: prometheus}
//	  logging: {enabled: true, level: info}
//	secrets:
//	  - name: file
//	    config: {dir: /run/secrets}
//	auth:
//	  api_keys:
//	    - principal: ops
//	      key: secretref:file:probewatch-api-key
//	monitors:
//	  - name: api
//	    kind: http
//	    target: https://api.internal/healthz
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Observe observe.Config `yaml:"observe"`
	Auth    auth.Config    `yaml:"auth"`

	// Secrets lists secret providers created through secret.DefaultRegistry.
	// The env provider is always available.
	Secrets []SecretProviderConfig `yaml:"secrets"`

	// StrictSecrets rejects secret references that resolve to "".
	StrictSecrets bool `yaml:"strict_secrets"`

	Monitors []health.MonitorConfig `yaml:"monitors"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Default: ":8080"
	Addr string `yaml:"addr"`

	// HistoryLimit is the number of transitions in detailed responses. A
	// negative value includes every retained transition.
	// Default: health.DefaultHistoryLimit
	HistoryLimit int `yaml:"history_limit"`

	// MetricsPath serves Prometheus metrics when the prometheus exporter is
	// enabled.
	// Default: "/metrics"
	MetricsPath string `yaml:"metrics_path"`

	// Default: 5s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SecretProviderConfig names a registered provider factory and its options.
type SecretProviderConfig struct {
	Name   string         `yaml:"name"`
	Config map[string]any `yaml:"config"`
}

func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.HistoryLimit == 0 {
		c.Server.HistoryLimit = health.DefaultHistoryLimit
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = "/metrics"
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Observe.ServiceName == "" {
		c.Observe.ServiceName = "probewatch"
	}
}

// Validate checks every section and joins the errors.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Observe.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observe: %w", err))
	}
	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}
	if len(c.Monitors) == 0 {
		errs = append(errs, fmt.Errorf("%w: no monitors configured", health.ErrInvalidConfig))
	}
	if err := health.ValidateMonitors(c.Monitors); err != nil {
		errs = append(errs, err)
	}
	for i, s := range c.Secrets {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("secrets[%d]: name is required", i))
		}
	}
	return errors.Join(errs...)
}

// resolver builds a resolver with the env provider and every configured
// provider.
func (c *Config) resolver() (*secret.Resolver, error) {
	r := secret.NewResolver(c.StrictSecrets, &secret.EnvProvider{})
	for _, s := range c.Secrets {
		p, err := secret.DefaultRegistry.Create(s.Name, s.Config)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("secret provider %s: %w", s.Name, err)
		}
		r.Register(p)
	}
	return r, nil
}

func monitorMeta(mc health.MonitorConfig) observe.MonitorMeta {
	return observe.MonitorMeta{Name: mc.Name, Kind: mc.Kind, Target: mc.Target}
}
