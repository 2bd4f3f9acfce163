package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecutor_NoLayers(t *testing.T) {
	e := NewExecutor()
	called := false
	if err := e.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("operation should run")
	}
}

func TestExecutor_NilExecutor(t *testing.T) {
	var e *Executor
	got, err := Do(context.Background(), e, func(context.Context) (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Errorf("Do(nil executor) = (%d, %v)", got, err)
	}
}

func TestExecutor_RetryInsideBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
	)

	attempts := 0
	err := e.Execute(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if cb.State() != StateClosed {
		t.Error("retried failures that end in success must not open the breaker")
	}
	if e.CircuitBreaker() != cb {
		t.Error("CircuitBreaker() should return the configured breaker")
	}
}

func TestExecutor_BreakerOpenIsNotRetried(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Minute})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})),
	)
	ctx := context.Background()

	_ = e.Execute(ctx, failOp(errors.New("down")))
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}
	if err := e.Execute(ctx, failOp(nil)); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() = %v, want ErrCircuitOpen", err)
	}
}

func TestExecutor_TimeoutPerAttempt(t *testing.T) {
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})),
		WithTimeout(20*time.Millisecond),
	)

	attempts := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() = %v, want success on the second attempt", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestExecutor_RateLimiterOutermost(t *testing.T) {
	e := NewExecutor(
		WithRateLimiter(NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})),
		WithBulkhead(NewBulkhead(BulkheadConfig{MaxConcurrent: 1})),
	)
	ctx := context.Background()

	if err := e.Execute(ctx, failOp(nil)); err != nil {
		t.Fatal(err)
	}
	if err := e.Execute(ctx, failOp(nil)); !errors.Is(err, ErrRateLimitExceeded) {
		t.Errorf("Execute() = %v, want ErrRateLimitExceeded", err)
	}
}

func TestDo_ReturnsValue(t *testing.T) {
	e := NewExecutor(WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})))

	attempts := 0
	got, err := Do(context.Background(), e, func(context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "partial", errors.New("transient")
		}
		return "summary", nil
	})
	if err != nil || got != "summary" {
		t.Errorf("Do() = (%q, %v), want (summary, nil)", got, err)
	}
}

func TestDo_ErrorYieldsZero(t *testing.T) {
	boom := &statusErr{400}
	got, err := Do(context.Background(), NewExecutor(), func(context.Context) (string, error) {
		return "ignored", boom
	})
	if err != boom || got != "" {
		t.Errorf("Do() = (%q, %v)", got, err)
	}
}
