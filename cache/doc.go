// Package cache provides the response cache that fronts expensive AI calls
// such as meeting summarization and action-item extraction.
//
// It provides a bounded LRU store with per-entry TTL, deterministic key
// derivation over (kind, input) pairs, TTL policies, and a cache-aside Loader
// with optional single-flight deduplication. Cache failures never reach the
// caller: they are logged and treated as a miss or a no-op.
package cache
