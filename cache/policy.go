package cache

import "time"

// Defaults used by DefaultPolicy.
const (
	DefaultMaxEntries = 100
	DefaultTTL        = time.Hour
)

// Policy configures capacity and expiry.
type Policy struct {
	// MaxEntries bounds the number of stored entries. Values <= 0 select
	// DefaultMaxEntries.
	MaxEntries int

	// DefaultTTL is the TTL to use when none is specified.
	// If zero, caching is disabled by default.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns the default caching policy.
// MaxEntries: 100, DefaultTTL: 1 hour, MaxTTL: unbounded
func DefaultPolicy() Policy {
	return Policy{
		MaxEntries: DefaultMaxEntries,
		DefaultTTL: DefaultTTL,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{
		MaxEntries: DefaultMaxEntries,
	}
}

// Capacity returns the effective entry bound.
func (p Policy) Capacity() int {
	if p.MaxEntries <= 0 {
		return DefaultMaxEntries
	}
	return p.MaxEntries
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
// Non-positive overrides fall back to DefaultTTL; a disabled policy always
// yields zero.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	if !p.ShouldCache() {
		return 0
	}

	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}

	// Clamp to MaxTTL if set
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}

	return ttl
}
