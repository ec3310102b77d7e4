package cache

import (
	"context"
	"time"
)

// Store defines the minimal contract for the key-value cache backing the
// conversation-list previews. Implementations must be concurrency-safe and
// context-aware.
type Store interface {
	// Get fetches the value for key; misses are reported as ErrMiss so
	// callers can tell them from transport errors.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key. Zero or negative TTL means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes one or more keys and returns the number removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Ping verifies connectivity with the cache backend.
	Ping(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// ErrMiss signals a cache miss in a typed way.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }
