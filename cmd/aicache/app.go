package main

import (
	"context"
	"fmt"
	"io"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/jonwraymond/aicache/cache"
	"github.com/jonwraymond/aicache/config"
	"github.com/jonwraymond/aicache/meeting"
	"github.com/jonwraymond/aicache/observe"
	"github.com/jonwraymond/aicache/provider"
	"github.com/jonwraymond/aicache/resilience"
)

// upstreamName labels the provider in telemetry and health reports.
const upstreamName = "openai"

// app holds the collaborators shared by every command that calls the model.
type app struct {
	cfg        *config.Config
	obs        observe.Observer
	logger     observe.Logger
	store      *cache.AICache
	executor   *resilience.Executor
	summarizer *meeting.Summarizer
	extractor  *meeting.ActionItemExtractor
}

type appOptions struct {
	logWriter io.Writer
	reader    sdkmetric.Reader
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	obsOpts := []observe.Option{observe.WithLogWriter(opts.logWriter)}
	if opts.reader != nil {
		obsOpts = append(obsOpts, observe.WithMetricReader(opts.reader))
	}
	obs, err := observe.NewObserver(ctx, cfg.Observe, obsOpts...)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	logger := obs.Logger()

	cacheMetrics, err := observe.NewCacheMetrics(obs.Meter())
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("init cache metrics: %w", err)
	}
	store := cache.New(cfg.Cache.Policy(), cache.WithLogger(logger), cache.WithMetrics(cacheMetrics))
	err = cacheMetrics.ObserveEntries(func() (int, int) {
		s := store.Stats()
		return s.Size, s.Max
	})
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("init cache metrics: %w", err)
	}

	loaderOpts := []cache.LoaderOption{cache.WithLoaderLogger(logger)}
	if cfg.Cache.SingleFlight {
		loaderOpts = append(loaderOpts, cache.WithSingleFlight())
	}
	loader := cache.NewLoader(store, loaderOpts...)

	keyer, err := cfg.Cache.Keyer()
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	apiKey, err := cfg.Provider.ResolveAPIKey(ctx, cfg.Provider.SecretResolver())
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("init middleware: %w", err)
	}

	client := provider.NewClient(cfg.Provider.BaseURL, provider.WithAPIKey(apiKey))
	executor := cfg.Resilience.Executor(upstreamName, cfg.Provider.Timeout)
	meetingOpts := []meeting.Option{
		meeting.WithKeyer(keyer),
		meeting.WithExecutor(executor),
		meeting.WithMiddleware(mw),
		meeting.WithProviderName(upstreamName),
		meeting.WithDefaults(meeting.Options{
			Model:       cfg.Provider.Model,
			Temperature: meeting.Temperature(cfg.Provider.Temperature),
			MaxTokens:   cfg.Provider.MaxTokens,
		}),
	}

	return &app{
		cfg:        cfg,
		obs:        obs,
		logger:     logger,
		store:      store,
		executor:   executor,
		summarizer: meeting.NewSummarizer(client, loader, meetingOpts...),
		extractor:  meeting.NewActionItemExtractor(client, loader, meetingOpts...),
	}, nil
}

// Close flushes telemetry.
func (a *app) Close(ctx context.Context) error {
	return a.obs.Shutdown(ctx)
}
