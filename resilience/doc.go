// Package resilience protects calls to the upstream AI provider.
//
// A cache miss turns into a slow, rate-limited and occasionally failing HTTP
// call. The patterns here keep those calls bounded:
//
//   - Retry: repeats transient failures with exponential, linear or
//     constant backoff. IsRetryable is the default classifier.
//   - CircuitBreaker: stops calling a provider after consecutive failures
//     and probes it again after a reset timeout.
//   - RateLimiter: a token bucket backed by golang.org/x/time/rate.
//   - Bulkhead: a concurrency cap backed by golang.org/x/sync/semaphore.
//   - Timeout: a per-attempt deadline.
//
// Executor composes them, and Do adapts the composition to calls that
// return a value:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 5, Burst: 2, WaitOnLimit: true})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "openai"})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{Jitter: true})),
//	    resilience.WithTimeout(30*time.Second),
//	)
//
//	text, err := resilience.Do(ctx, exec, func(ctx context.Context) (string, error) {
//	    return client.Complete(ctx, req)
//	})
package resilience
