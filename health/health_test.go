package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/aicache/cache"
	"github.com/jonwraymond/aicache/resilience"
)

type fixedStats cache.Stats

func (f fixedStats) Stats() cache.Stats { return cache.Stats(f) }

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusHealthy:   "healthy",
		StatusDegraded:  "degraded",
		StatusUnhealthy: "unhealthy",
		Status(42):      "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestStatus_Worse(t *testing.T) {
	if StatusHealthy.Worse(StatusDegraded) != StatusDegraded {
		t.Error("degraded is worse than healthy")
	}
	if StatusUnhealthy.Worse(StatusDegraded) != StatusUnhealthy {
		t.Error("unhealthy is worse than degraded")
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator(time.Second)
	agg.Register(NewCheckerFunc("a", func(context.Context) Result { return Healthy("ok") }))
	agg.Register(NewCheckerFunc("b", func(context.Context) Result { return Degraded("slow") }))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results["b"].Status != StatusDegraded {
		t.Errorf("b = %v", results["b"].Status)
	}
	if got := Overall(results); got != StatusDegraded {
		t.Errorf("Overall() = %v, want degraded", got)
	}
	if results["a"].Timestamp.IsZero() {
		t.Error("results should carry a timestamp")
	}
}

func TestAggregator_RunsInParallel(t *testing.T) {
	agg := NewAggregator(time.Second)
	for _, name := range []string{"a", "b", "c", "d"} {
		agg.Register(NewCheckerFunc(name, func(context.Context) Result {
			time.Sleep(50 * time.Millisecond)
			return Healthy("ok")
		}))
	}

	start := time.Now()
	agg.CheckAll(context.Background())
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("4 x 50ms checks took %v, expected parallel execution", elapsed)
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(20 * time.Millisecond)
	block := make(chan struct{})
	defer close(block)
	agg.Register(NewCheckerFunc("stuck", func(context.Context) Result {
		<-block
		return Healthy("never")
	}))

	r := agg.CheckAll(context.Background())["stuck"]
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("stuck check = %+v, want unhealthy timeout", r)
	}
}

func TestAggregator_PanicIsUnhealthy(t *testing.T) {
	agg := NewAggregator(time.Second)
	agg.Register(NewCheckerFunc("boom", func(context.Context) Result { panic("bad") }))

	if r := agg.CheckAll(context.Background())["boom"]; r.Status != StatusUnhealthy {
		t.Errorf("panicking check = %v, want unhealthy", r.Status)
	}
}

func TestAggregator_RegisterUnregister(t *testing.T) {
	agg := NewAggregator(0)
	agg.Register(NewCheckerFunc("a", func(context.Context) Result { return Healthy("") }))
	agg.Register(NewCheckerFunc("b", func(context.Context) Result { return Healthy("") }))
	agg.Register(NewCheckerFunc("a", func(context.Context) Result { return Degraded("") }))

	if names := agg.Names(); len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
	r, err := agg.Check(context.Background(), "a")
	if err != nil || r.Status != StatusDegraded {
		t.Errorf("re-registered checker should replace the old one: %v %v", r.Status, err)
	}

	agg.Unregister("a")
	if _, err := agg.Check(context.Background(), "a"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check() after Unregister = %v, want ErrCheckerNotFound", err)
	}
}

func TestOverall_Empty(t *testing.T) {
	if Overall(nil) != StatusHealthy {
		t.Error("no checks should be healthy")
	}
}

func TestCacheChecker(t *testing.T) {
	c := NewCacheChecker(fixedStats{Size: 3, Max: 100, Hits: 9, Misses: 1})
	r := c.Check(context.Background())

	if c.Name() != "cache" {
		t.Errorf("Name() = %q", c.Name())
	}
	if r.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", r.Status)
	}
	if r.Details["size"] != 3 || r.Details["hit_ratio"] != 0.9 {
		t.Errorf("Details = %v", r.Details)
	}
}

func TestCacheChecker_HitRatioFloor(t *testing.T) {
	tests := []struct {
		name  string
		stats fixedStats
		want  Status
	}{
		{"too few lookups", fixedStats{Hits: 0, Misses: 5}, StatusHealthy},
		{"below floor", fixedStats{Hits: 1, Misses: 19}, StatusDegraded},
		{"above floor", fixedStats{Hits: 15, Misses: 5}, StatusHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCacheChecker(tt.stats, WithMinHitRatio(0.5, 10))
			if got := c.Check(context.Background()).Status; got != tt.want {
				t.Errorf("Status = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheChecker_RealCache(t *testing.T) {
	store := cache.New(cache.DefaultPolicy())
	store.Set(context.Background(), "k", "v", 0)

	r := NewCacheChecker(store).Check(context.Background())
	if r.Details["size"] != 1 {
		t.Errorf("size = %v, want 1", r.Details["size"])
	}
}

func TestBreakerChecker(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "openai",
		MaxFailures:  1,
		ResetTimeout: time.Second,
		Now:          func() time.Time { return now },
	})
	checker := NewBreakerChecker(cb)
	ctx := context.Background()

	if checker.Name() != "openai" {
		t.Errorf("Name() = %q", checker.Name())
	}
	if got := checker.Check(ctx).Status; got != StatusHealthy {
		t.Errorf("closed breaker = %v, want healthy", got)
	}

	_ = cb.Execute(ctx, func(context.Context) error { return errors.New("down") })
	r := checker.Check(ctx)
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, resilience.ErrCircuitOpen) {
		t.Errorf("open breaker = %+v, want unhealthy", r)
	}

	now = now.Add(time.Second)
	if got := checker.Check(ctx).Status; got != StatusDegraded {
		t.Errorf("half-open breaker = %v, want degraded", got)
	}
}

func TestBreakerChecker_DefaultName(t *testing.T) {
	c := NewBreakerChecker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{}))
	if c.Name() != "upstream" {
		t.Errorf("Name() = %q, want upstream", c.Name())
	}
}
