package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/aicache/config"
	"github.com/jonwraymond/aicache/health"
	"github.com/jonwraymond/aicache/observe/exporters"
	"github.com/jonwraymond/aicache/server"
)

func newServeCmd(load configLoader) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the meeting API with the shared response cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, a, err := buildServer(ctx, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				shutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				_ = a.Close(shutCtx)
			}()

			if interval := cfg.Cache.JanitorInterval; interval > 0 {
				go a.store.RunJanitor(ctx, interval)
			}
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}

// buildServer wires the app, health checks and the metrics endpoint.
func buildServer(ctx context.Context, cfg *config.Config, logWriter io.Writer) (*server.Server, *app, error) {
	opts := appOptions{logWriter: logWriter}

	var metrics http.Handler
	if cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == exporters.Prometheus {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		reader, err := exporters.NewPrometheusReader(reg)
		if err != nil {
			return nil, nil, fmt.Errorf("init metrics: %w", err)
		}
		opts.reader = reader
		metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	a, err := newApp(ctx, cfg, opts)
	if err != nil {
		return nil, nil, err
	}

	agg := health.NewAggregator(health.DefaultCheckTimeout)
	agg.Register(health.NewCacheChecker(a.store))
	if cb := a.executor.CircuitBreaker(); cb != nil {
		agg.Register(health.NewBreakerChecker(cb))
	}

	srvOpts := []server.Option{
		server.WithHealth(agg),
		server.WithLogger(a.logger),
	}
	if metrics != nil {
		srvOpts = append(srvOpts, server.WithMetricsHandler(metrics))
	}
	return server.New(cfg.Listen, a.store, a.summarizer, a.extractor, srvOpts...), a, nil
}
