package observe

import (
	"context"
	"time"
)

// RunFunc performs an AI operation and reports whether it was served from
// the cache.
type RunFunc func(ctx context.Context) (cached bool, err error)

// Middleware wraps AI operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Run is safe for concurrent use.
//   - Context: the span context is passed to fn.
//   - Errors: errors from fn are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// Run executes fn inside a span and records its outcome.
func (m *Middleware) Run(ctx context.Context, op Operation, fn RunFunc) error {
	ctx, span := m.tracer.StartSpan(ctx, op)
	start := time.Now()

	cached, err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, cached, err)
	m.metrics.RecordCall(ctx, op, duration, cached, err)

	fields := append(op.fields(),
		Field{Key: "cached", Value: cached},
		Field{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
	)
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		m.logger.Error(ctx, "ai operation failed", fields...)
		return err
	}
	m.logger.Info(ctx, "ai operation completed", fields...)
	return nil
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
