package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CacheMetrics records response cache activity.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: implementations must not panic; the cache calls them while
//     serving requests.
type CacheMetrics interface {
	RecordLookup(ctx context.Context, hit bool)
	RecordSet(ctx context.Context)
	RecordEviction(ctx context.Context, reason string)
	RecordError(ctx context.Context, op string)
}

var (
	lookupHit  = metric.WithAttributes(attribute.String("result", "hit"))
	lookupMiss = metric.WithAttributes(attribute.String("result", "miss"))
)

// CacheInstruments is the OpenTelemetry implementation of CacheMetrics.
type CacheInstruments struct {
	meter     metric.Meter
	lookups   metric.Int64Counter
	sets      metric.Int64Counter
	evictions metric.Int64Counter
	errors    metric.Int64Counter
}

// NewCacheMetrics creates cache instruments on meter.
func NewCacheMetrics(meter metric.Meter) (*CacheInstruments, error) {
	lookups, err := meter.Int64Counter(
		"aicache.lookups",
		metric.WithDescription("Cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	sets, err := meter.Int64Counter(
		"aicache.sets",
		metric.WithDescription("Values written to the cache"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"aicache.evictions",
		metric.WithDescription("Entries removed by capacity or expiry"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter(
		"aicache.errors",
		metric.WithDescription("Cache operations degraded by an internal failure"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &CacheInstruments{
		meter:     meter,
		lookups:   lookups,
		sets:      sets,
		evictions: evictions,
		errors:    errs,
	}, nil
}

// ObserveEntries registers the aicache.entries and aicache.capacity gauges,
// read from fn at collection time.
func (m *CacheInstruments) ObserveEntries(fn func() (size, capacity int)) error {
	entries, err := m.meter.Int64ObservableGauge(
		"aicache.entries",
		metric.WithDescription("Live entries in the cache"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}
	capacity, err := m.meter.Int64ObservableGauge(
		"aicache.capacity",
		metric.WithDescription("Configured cache capacity"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	_, err = m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		size, limit := fn()
		o.ObserveInt64(entries, int64(size))
		o.ObserveInt64(capacity, int64(limit))
		return nil
	}, entries, capacity)
	return err
}

func (m *CacheInstruments) RecordLookup(ctx context.Context, hit bool) {
	if hit {
		m.lookups.Add(ctx, 1, lookupHit)
		return
	}
	m.lookups.Add(ctx, 1, lookupMiss)
}

func (m *CacheInstruments) RecordSet(ctx context.Context) {
	m.sets.Add(ctx, 1)
}

func (m *CacheInstruments) RecordEviction(ctx context.Context, reason string) {
	m.evictions.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *CacheInstruments) RecordError(ctx context.Context, op string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// NopCacheMetrics returns a CacheMetrics that records nothing.
func NopCacheMetrics() CacheMetrics {
	return noopCacheMetrics{}
}

type noopCacheMetrics struct{}

func (noopCacheMetrics) RecordLookup(context.Context, bool)     {}
func (noopCacheMetrics) RecordSet(context.Context)              {}
func (noopCacheMetrics) RecordEviction(context.Context, string) {}
func (noopCacheMetrics) RecordError(context.Context, string)    {}

var (
	_ CacheMetrics = (*CacheInstruments)(nil)
	_ CacheMetrics = noopCacheMetrics{}
)
