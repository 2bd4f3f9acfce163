package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/aicache/cache"
	"github.com/jonwraymond/aicache/resilience"
)

// StatsSource is anything that reports cache statistics.
type StatsSource interface {
	Stats() cache.Stats
}

// CacheChecker reports cache occupancy and effectiveness.
//
// The cache never fails outright, so the check is healthy unless a hit ratio
// floor is configured and enough lookups have happened to judge it.
type CacheChecker struct {
	source      StatsSource
	minHitRatio float64
	minLookups  int64
}

// CacheCheckerOption configures a CacheChecker.
type CacheCheckerOption func(*CacheChecker)

// WithMinHitRatio reports degraded when the hit ratio falls below ratio once
// at least minLookups lookups have been served.
func WithMinHitRatio(ratio float64, minLookups int64) CacheCheckerOption {
	return func(c *CacheChecker) {
		c.minHitRatio = ratio
		c.minLookups = minLookups
	}
}

// NewCacheChecker creates a checker over source.
func NewCacheChecker(source StatsSource, opts ...CacheCheckerOption) *CacheChecker {
	c := &CacheChecker{source: source}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Checker.
func (c *CacheChecker) Name() string { return "cache" }

// Check implements Checker.
func (c *CacheChecker) Check(context.Context) Result {
	s := c.source.Stats()
	ratio := s.HitRatio()
	details := map[string]any{
		"size":        s.Size,
		"max":         s.Max,
		"hits":        s.Hits,
		"misses":      s.Misses,
		"evictions":   s.Evictions,
		"expirations": s.Expirations,
		"hit_ratio":   ratio,
	}

	if c.minHitRatio > 0 && s.Hits+s.Misses >= c.minLookups && ratio < c.minHitRatio {
		return Degraded(fmt.Sprintf("hit ratio %.2f below %.2f", ratio, c.minHitRatio)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%d/%d entries", s.Size, s.Max)).WithDetails(details)
}

// BreakerChecker maps a circuit breaker's state to health: closed is
// healthy, half-open degraded and open unhealthy.
type BreakerChecker struct {
	name    string
	breaker *resilience.CircuitBreaker
}

// NewBreakerChecker creates a checker named after the breaker, or "upstream"
// when the breaker has no name.
func NewBreakerChecker(cb *resilience.CircuitBreaker) *BreakerChecker {
	name := cb.Name()
	if name == "" {
		name = "upstream"
	}
	return &BreakerChecker{name: name, breaker: cb}
}

// Name implements Checker.
func (b *BreakerChecker) Name() string { return b.name }

// Check implements Checker.
func (b *BreakerChecker) Check(context.Context) Result {
	m := b.breaker.Metrics()
	details := map[string]any{
		"state":     m.State.String(),
		"failures":  m.Failures,
		"successes": m.Successes,
		"rejected":  m.Rejected,
	}

	switch m.State {
	case resilience.StateClosed:
		return Healthy("circuit closed").WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("circuit half-open, probing upstream").WithDetails(details)
	default:
		return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
	}
}

var (
	_ Checker = (*CacheChecker)(nil)
	_ Checker = (*BreakerChecker)(nil)
)
