// Command probewatch runs a fleet of health-probe monitors and serves their
// status over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/probewatch/auth"
	"github.com/jonwraymond/probewatch/health"
	"github.com/jonwraymond/probewatch/monitor"
	"github.com/jonwraymond/probewatch/observe"
	"github.com/jonwraymond/probewatch/observe/exporters"
	"github.com/jonwraymond/probewatch/secret"
)

func main() {
	configPath := flag.String("config", "probewatch.yaml", "path to the configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, "probewatch:", err)
		os.Exit(1)
	}
}

// app holds everything run wires together.
type app struct {
	cfg      Config
	resolver *secret.Resolver
	registry *prometheus.Registry
	obs      observe.Observer
	logger   observe.Logger
	agg      *health.Aggregator
	detach   []func()
}

func run(ctx context.Context, path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	handler, err := a.handler(ctx)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	a.agg.StartAll()
	a.logger.Info(ctx, "probewatch started",
		observe.Field{Key: "addr", Value: ln.Addr().String()},
		observe.Field{Key: "monitors", Value: len(cfg.Monitors)},
	)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	}

	a.logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newApp builds the observer and the monitor fleet. Monitors are instrumented
// but not started.
func newApp(ctx context.Context, cfg Config) (_ *app, err error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if a.resolver, err = cfg.resolver(); err != nil {
		return nil, err
	}

	a.obs, err = observe.NewObserver(ctx, cfg.Observe,
		observe.WithExporterOptions(exporters.Options{Registerer: a.registry}))
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	a.logger = a.obs.Logger()

	inst, err := observe.InstrumentationFromObserver(a.obs)
	if err != nil {
		return nil, fmt.Errorf("instrumentation: %w", err)
	}

	a.agg, err = health.BuildAggregator(ctx, cfg.Monitors,
		health.WithResolver(a.resolver),
		health.WithCheckWrapper(func(mc health.MonitorConfig, check monitor.Check) monitor.Check {
			return inst.WrapCheck(monitorMeta(mc), check)
		}),
	)
	if err != nil {
		return nil, err
	}

	for _, mc := range cfg.Monitors {
		m, err := a.agg.Monitor(mc.Name)
		if err != nil {
			return nil, err
		}
		a.detach = append(a.detach, inst.Attach(m, monitorMeta(mc)))
	}
	return a, nil
}

// handler registers the health endpoints, behind authentication when it is
// configured, and the Prometheus endpoint when that exporter is enabled.
func (a *app) handler(ctx context.Context) (http.Handler, error) {
	mux := http.NewServeMux()
	opts := []health.HandlerOption{health.WithHistoryLimit(a.cfg.Server.HistoryLimit)}

	if a.cfg.Auth.Enabled() {
		authCfg, err := a.cfg.Auth.Resolve(ctx, a.resolver)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
		authn, err := auth.New(authCfg)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
		opts = append(opts, health.WithMiddleware(authCfg.Handler(authn,
			auth.WithFailureHook(func(r *http.Request, err error) {
				a.logger.Warn(r.Context(), "request rejected",
					observe.Field{Key: "path", Value: r.URL.Path},
					observe.Field{Key: "error", Value: err},
				)
			}),
		)))
	}
	health.RegisterHandlers(mux, a.agg, opts...)

	if a.cfg.Observe.Metrics.Enabled && a.cfg.Observe.Metrics.Exporter == "prometheus" {
		mux.Handle(a.cfg.Server.MetricsPath, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	}
	return mux, nil
}

// close stops the monitors, then detaches instrumentation so the stop events
// are still logged. It is safe on a partially built app.
func (a *app) close() {
	if a.agg != nil {
		if err := a.agg.Close(); err != nil && a.logger != nil {
			a.logger.Error(context.Background(), "close monitors", observe.Field{Key: "error", Value: err})
		}
		a.agg = nil
	}
	for _, detach := range a.detach {
		detach()
	}
	a.detach = nil
	if a.obs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		if err := a.obs.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "probewatch: observe shutdown:", err)
		}
		cancel()
		a.obs = nil
	}
	if a.resolver != nil {
		_ = a.resolver.Close()
		a.resolver = nil
	}
}
