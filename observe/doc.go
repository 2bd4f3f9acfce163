// Package observe provides observability primitives for AI operations and
// the response cache.
//
// It is a pure instrumentation library: a JSON structured logger, an
// OpenTelemetry tracer and meter behind an Observer, cache instruments, and a
// Middleware that wraps each AI call in a span, a metric record and a log line.
package observe
