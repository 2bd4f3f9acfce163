package observe

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records AI operation metrics.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records one AI operation, served from cache or upstream.
	RecordCall(ctx context.Context, op Operation, duration time.Duration, cached bool, err error)
}

type otelMetrics struct {
	total    metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates AI operation instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	total, err := meter.Int64Counter(
		"ai.op.total",
		metric.WithDescription("Total number of AI operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter(
		"ai.op.errors",
		metric.WithDescription("Total number of failed AI operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"ai.op.duration_ms",
		metric.WithDescription("AI operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{total: total, errors: errs, duration: duration}, nil
}

func (m *otelMetrics) RecordCall(ctx context.Context, op Operation, duration time.Duration, cached bool, err error) {
	attrs := append(op.attributes(), attribute.String("ai.cached", strconv.FormatBool(cached)))
	opt := metric.WithAttributes(attrs...)

	m.total.Add(ctx, 1, opt)
	if err != nil {
		m.errors.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordCall(context.Context, Operation, time.Duration, bool, error) {}
