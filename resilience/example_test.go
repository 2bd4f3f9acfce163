package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/aicache/resilience"
)

func ExampleNewCircuitBreaker() {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "openai",
		MaxFailures:  2,
		ResetTimeout: time.Minute,
	})
	ctx := context.Background()
	down := errors.New("503 from provider")

	fmt.Println("Initial state:", cb.State())
	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func(context.Context) error { return down })
	}
	fmt.Println("After failures:", cb.State())

	err := cb.Execute(ctx, func(context.Context) error { return nil })
	fmt.Println("Rejected:", errors.Is(err, resilience.ErrCircuitOpen))
	// Output:
	// Initial state: closed
	// After failures: open
	// Rejected: true
}

func ExampleNewRetry() {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	})

	attempts := 0
	err := r.Execute(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary failure")
		}
		return nil
	})
	fmt.Printf("err=%v attempts=%d\n", err, attempts)
	// Output:
	// err=<nil> attempts=3
}

func ExampleDo() {
	exec := resilience.NewExecutor(
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{InitialDelay: time.Millisecond})),
		resilience.WithTimeout(time.Second),
	)

	text, err := resilience.Do(context.Background(), exec, func(context.Context) (string, error) {
		return `{"summary":"Launch approved"}`, nil
	})
	fmt.Println(text, err)
	// Output:
	// {"summary":"Launch approved"} <nil>
}

func ExampleNewBulkhead() {
	b := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 1})
	ctx := context.Background()

	_ = b.Acquire(ctx)
	fmt.Println("Second caller:", b.Acquire(ctx))
	b.Release()
	// Output:
	// Second caller: resilience: bulkhead at capacity
}
