package resilience

import (
	"context"
	"sync"
	"time"
)

// Executor composes the resilience patterns around one upstream.
//
// Layers run outermost first: rate limiter, bulkhead, circuit breaker,
// retry, timeout. Each retry attempt gets its own timeout, and the breaker
// counts one outcome per Execute, not per attempt.
type Executor struct {
	circuitBreaker *CircuitBreaker
	retry          *Retry
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor. With no options it calls op directly.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry adds retries.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithRateLimiter adds rate limiting.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.rateLimiter = rl }
}

// WithBulkhead adds concurrency isolation.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithTimeout adds a per-attempt timeout.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		if timeout > 0 {
			e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
		}
	}
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.circuitBreaker
}

// Execute runs op through every configured layer.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	if e == nil {
		return op(ctx)
	}

	call := op
	if e.timeout != nil {
		call = wrap(call, e.timeout.Execute)
	}
	if e.retry != nil {
		call = wrap(call, e.retry.Execute)
	}
	if e.circuitBreaker != nil {
		call = wrap(call, e.circuitBreaker.Execute)
	}
	if e.bulkhead != nil {
		call = wrap(call, e.bulkhead.Execute)
	}
	if e.rateLimiter != nil {
		call = wrap(call, e.rateLimiter.Execute)
	}
	return call(ctx)
}

type layer func(context.Context, func(context.Context) error) error

func wrap(inner func(context.Context) error, l layer) func(context.Context) error {
	return func(ctx context.Context) error {
		return l(ctx, inner)
	}
}

// Do runs fn through the executor and returns its value. An attempt
// abandoned by the timeout layer cannot overwrite the result after Do returns.
func Do[T any](ctx context.Context, e *Executor, fn func(context.Context) (T, error)) (T, error) {
	var (
		mu   sync.Mutex
		out  T
		done bool
	)
	err := e.Execute(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		if !done {
			out = v
		}
		mu.Unlock()
		return nil
	})

	mu.Lock()
	defer mu.Unlock()
	done = true
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
