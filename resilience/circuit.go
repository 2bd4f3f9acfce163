package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the circuit breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the protected upstream in health reports.
	Name string

	// MaxFailures is the consecutive failure count that opens the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30s
	ResetTimeout time.Duration

	// HalfOpenMaxRequests bounds concurrent probes. Default: 1
	HalfOpenMaxRequests int

	// OnStateChange runs after every transition, outside the breaker lock.
	OnStateChange func(from, to State)

	// IsFailure decides whether an error counts against the upstream.
	// Default: any error except caller cancellation.
	IsFailure func(err error) bool

	// Now overrides the clock. Intended for tests.
	Now func() time.Time
}

// CircuitBreaker stops calling an upstream that keeps failing.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	probes    int
	rejected  int64
	successes int64
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &CircuitBreaker{config: config}
}

// Name returns the configured upstream name.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// Execute runs op unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := op(ctx)
	cb.record(err)
	return err
}

// State returns the current position, moving open to half-open once the
// reset timeout has passed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	from, to := cb.advanceLocked()
	state := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
	return state
}

// Reset closes the circuit and clears failure counts.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.mu.Unlock()

	cb.notify(from, StateClosed)
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	from, to := cb.advanceLocked()

	var err error
	switch cb.state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxRequests {
			err = ErrCircuitOpen
		} else {
			cb.probes++
		}
	}
	if err != nil {
		cb.rejected++
	}
	cb.mu.Unlock()

	cb.notify(from, to)
	return err
}

func (cb *CircuitBreaker) record(err error) {
	failed := cb.config.IsFailure(err)

	cb.mu.Lock()
	from := cb.state
	switch cb.state {
	case StateClosed:
		if failed {
			cb.failures++
			if cb.failures >= cb.config.MaxFailures {
				cb.openLocked()
			}
		} else {
			cb.failures = 0
			cb.successes++
		}
	case StateHalfOpen:
		cb.probes--
		if failed {
			cb.openLocked()
		} else {
			cb.state = StateClosed
			cb.failures = 0
			cb.probes = 0
			cb.successes++
		}
	}
	to := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
}

func (cb *CircuitBreaker) openLocked() {
	cb.state = StateOpen
	cb.openedAt = cb.config.Now()
	cb.probes = 0
}

func (cb *CircuitBreaker) advanceLocked() (from, to State) {
	from = cb.state
	if cb.state == StateOpen && cb.config.Now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		cb.state = StateHalfOpen
		cb.probes = 0
	}
	return from, cb.state
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// Metrics returns a snapshot of the breaker counters.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	state := cb.State()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerMetrics{
		State:     state,
		Failures:  cb.failures,
		Successes: cb.successes,
		Rejected:  cb.rejected,
		OpenedAt:  cb.openedAt,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State     State
	Failures  int
	Successes int64
	Rejected  int64
	OpenedAt  time.Time
}
