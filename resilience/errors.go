package resilience

import (
	"context"
	"errors"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimitExceeded is returned when no token is available in time.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when no concurrency slot frees up in time.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when an upstream call exceeds its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// Retryable is implemented by errors that know whether repeating the call
// could succeed, such as an upstream HTTP status.
type Retryable interface {
	Retryable() bool
}

// IsRetryable is the default retry classifier.
//
// Caller cancellation and breaker rejections are final. Errors implementing
// Retryable decide for themselves. Everything else, including ErrTimeout, is
// treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}
