// Package cache provides the small caching surface the application needs:
// string get/set with TTL for cache-aside reads, key deletion for
// invalidation, and an atomic counter with expiry for rate limiting.
//
// Every caller is expected to treat cache errors as soft failures. The
// cache going away must never take a request down with it.
package cache

import (
	"context"
	"time"
)

// Cache is the shared interface for the Redis client and the in-memory
// implementation used in tests and cacheless development setups.
type Cache interface {
	// Get returns the value and whether the key was present
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores the value under key for the given TTL
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Del removes the given keys, missing keys are not an error
	Del(ctx context.Context, keys ...string) error
	// IncrWithTTL atomically increments the counter at key, arming the
	// expiry when the counter is created
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
