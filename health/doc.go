// Package health reports whether the cache service can do useful work.
//
// Checkers cover the two moving parts: CacheChecker exposes occupancy and hit
// ratio, and BreakerChecker turns the upstream circuit breaker state into a
// status. An Aggregator runs them in parallel under one timeout, and the HTTP
// handlers expose the result as Kubernetes-style probes:
//
//	agg := health.NewAggregator(2 * time.Second)
//	agg.Register(health.NewCacheChecker(store))
//	agg.Register(health.NewBreakerChecker(breaker))
//	health.RegisterHandlers(mux, agg)
package health
