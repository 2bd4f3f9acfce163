package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
//
// None of these are returned by Store methods; they are logged and reported to
// the metrics recorder when an operation degrades to a miss or a no-op.
var (
	ErrNilCache      = errors.New("cache: cache is nil")
	ErrInvalidKey    = errors.New("cache: key is invalid")
	ErrKeyTooLong    = errors.New("cache: key exceeds max length")
	ErrInvalidValue  = errors.New("cache: value is not valid JSON")
	ErrInternalPanic = errors.New("cache: internal panic recovered")
)

// Store is the interface for caching AI results.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: no method reports failure. Get signals absence with ok=false,
//     writes that cannot be completed are logged and dropped.
//   - Ownership: values cross the boundary as JSON. Set serializes the caller's
//     value and Get returns a copy the caller may keep or mutate.
type Store interface {
	// Get retrieves a cached value. Returns (nil, false) on miss or expiry.
	Get(ctx context.Context, key string) (json.RawMessage, bool)

	// Set stores value under key. A ttl <= 0 selects the store's default TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration)

	// Delete removes a cached value. Idempotent - no-op on miss.
	Delete(ctx context.Context, key string)

	// Clear removes every entry.
	Clear(ctx context.Context)

	// Stats reports the current size and capacity.
	Stats() Stats
}

// Entry is a single cached AI result.
type Entry struct {
	Key       string
	Value     json.RawMessage
	Timestamp time.Time
	TTL       time.Duration
}

// ExpiresAt returns the absolute expiry deadline of the entry.
func (e *Entry) ExpiresAt() time.Time {
	return e.Timestamp.Add(e.TTL)
}

// Expired reports whether the entry is past its deadline at now.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt())
}

// Stats is a diagnostic snapshot of a store.
type Stats struct {
	// Size counts live (non-expired) entries.
	Size int `json:"size"`
	// Max is the configured capacity.
	Max int `json:"max"`

	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
}

// HitRatio returns hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// GetAs retrieves key from store and decodes the hit into T.
// A value that does not decode into T is reported as a miss.
func GetAs[T any](ctx context.Context, store Store, key string) (T, bool) {
	var zero T
	if store == nil {
		return zero, false
	}
	raw, ok := store.Get(ctx, key)
	if !ok {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, false
	}
	return out, true
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
