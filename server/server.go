// Package server exposes the meeting collaborators and the response cache
// over HTTP.
//
// Routes:
//
//	POST   /v1/summarize      {"transcript": "...", "options": {...}} -> Summary
//	POST   /v1/action-items   {"transcript": "...", "options": {...}} -> [ActionItem]
//	GET    /v1/cache/stats    cache statistics
//	DELETE /v1/cache          clear every entry
//	DELETE /v1/cache/{key}    drop one entry
//	GET    /healthz /readyz /health, GET /metrics when configured
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/jonwraymond/aicache/cache"
	"github.com/jonwraymond/aicache/health"
	"github.com/jonwraymond/aicache/meeting"
	"github.com/jonwraymond/aicache/observe"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// maxRequestBytes bounds a request body.
const maxRequestBytes = 1 << 20

// Summarizer is the summary operation the server exposes.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, opts meeting.Options) (meeting.Summary, error)
}

// ActionItemExtractor is the action item operation the server exposes.
type ActionItemExtractor interface {
	Extract(ctx context.Context, transcript string, opts meeting.Options) ([]meeting.ActionItem, error)
}

// Server routes HTTP requests to the meeting collaborators and the cache.
type Server struct {
	addr            string
	store           cache.Store
	summarizer      Summarizer
	extractor       ActionItemExtractor
	health          *health.Aggregator
	metrics         http.Handler
	logger          observe.Logger
	shutdownTimeout time.Duration
	mux             *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithHealth mounts the health endpoints backed by agg.
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) { s.health = agg }
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the request logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithShutdownTimeout overrides DefaultShutdownTimeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// New creates a server listening on addr.
func New(addr string, store cache.Store, summarizer Summarizer, extractor ActionItemExtractor, opts ...Option) *Server {
	s := &Server{
		addr:            addr,
		store:           store,
		summarizer:      summarizer,
		extractor:       extractor,
		logger:          observe.NopLogger(),
		shutdownTimeout: DefaultShutdownTimeout,
		mux:             http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /v1/summarize", s.handleSummarize)
	s.mux.HandleFunc("POST /v1/action-items", s.handleActionItems)
	s.mux.HandleFunc("GET /v1/cache/stats", s.handleStats)
	s.mux.HandleFunc("DELETE /v1/cache", s.handleClear)
	s.mux.HandleFunc("DELETE /v1/cache/{key}", s.handleDelete)
	if s.health != nil {
		health.RegisterHandlers(s.mux, s.health)
	}
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	s.logger.Info(r.Context(), "http request",
		observe.Field{Key: "method", Value: r.Method},
		observe.Field{Key: "path", Value: r.URL.Path},
		observe.Field{Key: "status", Value: rec.status},
		observe.Field{Key: "duration_ms", Value: float64(time.Since(start).Microseconds()) / 1000},
	)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "aicache listening", observe.Field{Key: "addr", Value: ln.Addr().String()})
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return err
		}
		s.logger.Info(ctx, "aicache stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
