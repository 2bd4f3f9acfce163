package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/jonwraymond/aicache/observe"
)

// DisposeReason tells a DisposeFunc why an entry left the cache.
type DisposeReason string

const (
	DisposeCapacity DisposeReason = "capacity"
	DisposeExpired  DisposeReason = "expired"
	DisposeDeleted  DisposeReason = "deleted"
	DisposeCleared  DisposeReason = "cleared"
)

// DisposeFunc observes entries leaving the cache. It is advisory: it runs
// after the cache lock is released and a panic inside it is recovered.
type DisposeFunc func(key string, value json.RawMessage, reason DisposeReason)

// Option configures an AICache.
type Option func(*AICache)

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l observe.Logger) Option {
	return func(c *AICache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.CacheMetrics) Option {
	return func(c *AICache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithDisposeFunc registers a hook invoked for evicted, expired, deleted and
// cleared entries.
func WithDisposeFunc(fn DisposeFunc) Option {
	return func(c *AICache) {
		c.onDispose = fn
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *AICache) {
		if now != nil {
			c.now = now
		}
	}
}

// AICache is a bounded in-memory store with least-recently-used eviction and
// per-entry TTL.
//
// Reads move an entry to the most-recently-used position without extending
// its deadline. Expired entries are never returned; they are removed when a
// lookup finds them or when PurgeExpired runs.
type AICache struct {
	mu     sync.Mutex
	lru    *simplelru.LRU[string, *Entry]
	policy Policy

	logger    observe.Logger
	metrics   observe.CacheMetrics
	onDispose DisposeFunc
	now       func() time.Time

	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
}

type disposal struct {
	key    string
	value  json.RawMessage
	reason DisposeReason
}

// New creates a cache with the given policy.
func New(policy Policy, opts ...Option) *AICache {
	policy.MaxEntries = policy.Capacity()

	// Capacity is positive, so NewLRU cannot fail. Eviction is driven
	// explicitly by Set, so no callback is registered.
	l, _ := simplelru.NewLRU[string, *Entry](policy.MaxEntries, nil)

	c := &AICache{
		lru:     l,
		policy:  policy,
		logger:  observe.NopLogger(),
		metrics: observe.NopCacheMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the policy the cache was built with.
func (c *AICache) Policy() Policy {
	return c.policy
}

// Get retrieves a value from the cache. Returns (nil, false) on miss or expiry.
func (c *AICache) Get(ctx context.Context, key string) (value json.RawMessage, ok bool) {
	defer c.recoverOp(ctx, "get", key, func() { value, ok = nil, false })

	if err := ValidateKey(key); err != nil {
		c.fail(ctx, "get", key, err)
		c.miss(ctx, key)
		return nil, false
	}

	var gone []disposal

	c.mu.Lock()
	entry, found := c.lru.Peek(key)
	if found && entry.Expired(c.now()) {
		c.lru.Remove(key)
		c.expirations.Add(1)
		gone = append(gone, disposal{key: key, value: entry.Value, reason: DisposeExpired})
		found = false
	}
	if found {
		// Refresh recency only; the deadline stays Timestamp+TTL.
		c.lru.Get(key)
		value = bytes.Clone(entry.Value)
	}
	c.mu.Unlock()

	c.dispose(ctx, gone)

	if !found {
		c.miss(ctx, key)
		return nil, false
	}

	c.hits.Add(1)
	c.metrics.RecordLookup(ctx, true)
	c.logger.Debug(ctx, "cache hit", observe.Field{Key: "key", Value: key})
	return value, true
}

// Set stores value under key, evicting the least-recently-used entry when a
// new key would exceed capacity. A ttl <= 0 selects the policy default.
func (c *AICache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	defer c.recoverOp(ctx, "set", key, nil)

	if err := ValidateKey(key); err != nil {
		c.fail(ctx, "set", key, err)
		return
	}

	ttl = c.policy.EffectiveTTL(ttl)
	if ttl <= 0 {
		return
	}

	encoded, err := encodeValue(value)
	if err != nil {
		c.fail(ctx, "set", key, err)
		return
	}

	var gone []disposal

	c.mu.Lock()
	if !c.lru.Contains(key) && c.lru.Len() >= c.policy.MaxEntries {
		if oldKey, oldEntry, ok := c.lru.RemoveOldest(); ok {
			c.evictions.Add(1)
			gone = append(gone, disposal{key: oldKey, value: oldEntry.Value, reason: DisposeCapacity})
		}
	}
	c.lru.Add(key, &Entry{
		Key:       key,
		Value:     encoded,
		Timestamp: c.now(),
		TTL:       ttl,
	})
	c.mu.Unlock()

	c.dispose(ctx, gone)

	c.metrics.RecordSet(ctx)
	c.logger.Info(ctx, "content cached",
		observe.Field{Key: "key", Value: key},
		observe.Field{Key: "ttl_ms", Value: ttl.Milliseconds()},
	)
}

// Delete removes a value from the cache. Idempotent - no-op on miss.
func (c *AICache) Delete(ctx context.Context, key string) {
	defer c.recoverOp(ctx, "delete", key, nil)

	if err := ValidateKey(key); err != nil {
		c.fail(ctx, "delete", key, err)
		return
	}

	var gone []disposal

	c.mu.Lock()
	if entry, ok := c.lru.Peek(key); ok {
		c.lru.Remove(key)
		gone = append(gone, disposal{key: key, value: entry.Value, reason: DisposeDeleted})
	}
	c.mu.Unlock()

	if len(gone) == 0 {
		c.logger.Debug(ctx, "cache delete missed", observe.Field{Key: "key", Value: key})
		return
	}
	c.dispose(ctx, gone)
	c.logger.Info(ctx, "cache entry deleted", observe.Field{Key: "key", Value: key})
}

// Clear removes every entry.
func (c *AICache) Clear(ctx context.Context) {
	defer c.recoverOp(ctx, "clear", "", nil)

	c.mu.Lock()
	var gone []disposal
	if c.onDispose != nil {
		for _, entry := range c.lru.Values() {
			gone = append(gone, disposal{key: entry.Key, value: entry.Value, reason: DisposeCleared})
		}
	}
	size := c.lru.Len()
	c.lru.Purge()
	c.mu.Unlock()

	c.dispose(ctx, gone)
	c.logger.Info(ctx, "ai cache cleared", observe.Field{Key: "entries_deleted", Value: size})
}

// PurgeExpired removes every expired entry and returns how many were removed.
func (c *AICache) PurgeExpired(ctx context.Context) (removed int) {
	defer c.recoverOp(ctx, "purge", "", nil)

	var gone []disposal

	c.mu.Lock()
	now := c.now()
	for _, entry := range c.lru.Values() {
		if entry.Expired(now) {
			c.lru.Remove(entry.Key)
			gone = append(gone, disposal{key: entry.Key, value: entry.Value, reason: DisposeExpired})
		}
	}
	c.mu.Unlock()

	removed = len(gone)
	c.expirations.Add(int64(removed))
	c.dispose(ctx, gone)

	if removed > 0 {
		c.logger.Debug(ctx, "expired entries purged", observe.Field{Key: "count", Value: removed})
	}
	return removed
}

// RunJanitor calls PurgeExpired every interval until ctx is done.
func (c *AICache) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.PurgeExpired(ctx)
		}
	}
}

// Stats reports live entries, capacity and lookup counters.
func (c *AICache) Stats() Stats {
	c.mu.Lock()
	now := c.now()
	live := 0
	for _, entry := range c.lru.Values() {
		if !entry.Expired(now) {
			live++
		}
	}
	c.mu.Unlock()

	return Stats{
		Size:        live,
		Max:         c.policy.MaxEntries,
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
	}
}

// Len returns the raw number of stored entries, including expired entries
// that have not been purged yet.
func (c *AICache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *AICache) miss(ctx context.Context, key string) {
	c.misses.Add(1)
	c.metrics.RecordLookup(ctx, false)
	c.logger.Debug(ctx, "cache miss", observe.Field{Key: "key", Value: key})
}

func (c *AICache) fail(ctx context.Context, op, key string, err error) {
	c.metrics.RecordError(ctx, op)
	c.logger.Error(ctx, "ai cache "+op+" failed",
		observe.Field{Key: "op", Value: op},
		observe.Field{Key: "key", Value: key},
		observe.Field{Key: "error", Value: err.Error()},
	)
}

// recoverOp converts a panic inside a public operation into a logged failure.
// onPanic resets named results to their benign values.
func (c *AICache) recoverOp(ctx context.Context, op, key string, onPanic func()) {
	r := recover()
	if r == nil {
		return
	}
	c.fail(ctx, op, key, fmt.Errorf("%w: %v", ErrInternalPanic, r))
	if onPanic != nil {
		onPanic()
	}
}

func (c *AICache) dispose(ctx context.Context, gone []disposal) {
	for _, d := range gone {
		switch d.reason {
		case DisposeCapacity, DisposeExpired:
			c.metrics.RecordEviction(ctx, string(d.reason))
		}
		c.logger.Debug(ctx, "cache entry disposed",
			observe.Field{Key: "key", Value: d.key},
			observe.Field{Key: "reason", Value: string(d.reason)},
		)
		if c.onDispose != nil {
			c.callDispose(ctx, d)
		}
	}
}

func (c *AICache) callDispose(ctx context.Context, d disposal) {
	defer c.recoverOp(ctx, "dispose", d.key, nil)
	c.onDispose(d.key, d.value, d.reason)
}

// encodeValue serializes a caller value. Raw JSON is validated and copied
// rather than re-encoded.
func encodeValue(value any) (json.RawMessage, error) {
	switch v := value.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, ErrInvalidValue
		}
		return bytes.Clone(v), nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return data, nil
	}
}

// Ensure AICache implements Store
var _ Store = (*AICache)(nil)
