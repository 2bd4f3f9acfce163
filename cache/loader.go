package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/aicache/observe"
)

// LoadFunc performs the expensive operation on a cache miss.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Loader runs the cache-aside protocol around expensive, non-deterministic
// AI calls.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: load errors are returned unchanged and never cached. Cache
//     failures degrade to a miss.
//   - Deduplication: without WithSingleFlight, concurrent misses for the same
//     key each run the load; the cache still holds at most one entry per key.
type Loader struct {
	store  Store
	group  *singleflight.Group
	logger observe.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithSingleFlight collapses concurrent misses for the same key into one
// load. Waiters return early when their own context is done; the shared load
// runs detached from any single caller's cancellation.
func WithSingleFlight() LoaderOption {
	return func(l *Loader) {
		l.group = &singleflight.Group{}
	}
}

// WithLoaderLogger sets the logger used for hit/miss diagnostics.
func WithLoaderLogger(logger observe.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader backed by store.
func NewLoader(store Store, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:  store,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Store returns the backing store.
func (l *Loader) Store() Store {
	return l.store
}

// SingleFlight reports whether concurrent misses are deduplicated.
func (l *Loader) SingleFlight() bool {
	return l.group != nil
}

// Remember returns the cached value for key, or runs load, stores its result
// with ttl and returns it. hit reports whether load was skipped.
func Remember[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, load LoadFunc[T]) (value T, hit bool, err error) {
	if l == nil || l.store == nil {
		value, err = load(ctx)
		return value, false, err
	}

	if v, ok := GetAs[T](ctx, l.store, key); ok {
		return v, true, nil
	}

	if l.group == nil {
		value, err = fill(ctx, l, key, ttl, load)
		return value, false, err
	}

	ch := l.group.DoChan(key, func() (any, error) {
		// An earlier flight may have stored the key after our lookup.
		if v, ok := GetAs[T](ctx, l.store, key); ok {
			return v, nil
		}
		v, err := fill(context.WithoutCancel(ctx), l, key, ttl, load)
		if err != nil {
			return nil, err
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, false, res.Err
		}
		if res.Shared {
			l.logger.Debug(ctx, "shared in-flight load", observe.Field{Key: "key", Value: key})
		}
		if res.Val == nil {
			var zero T
			return zero, false, nil
		}
		v, ok := res.Val.(T)
		if !ok {
			var zero T
			return zero, false, fmt.Errorf("cache: in-flight result for %q has type %T", key, res.Val)
		}
		return v, false, nil
	}
}

func fill[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, load LoadFunc[T]) (T, error) {
	v, err := load(ctx)
	if err != nil {
		l.logger.Debug(ctx, "load failed, not cached",
			observe.Field{Key: "key", Value: key},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return v, err
	}
	l.store.Set(ctx, key, v, ttl)
	return v, nil
}
