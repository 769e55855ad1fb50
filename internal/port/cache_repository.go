package port

import (
	"context"
	"time"
)

// CacheBackend is a byte store with per-entry TTL. Implementations must be
// safe for concurrent use and return exactly the bytes that were stored.
type CacheBackend interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set overwrites key unconditionally
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores value only if key is absent, returns false if it already exists
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	Del(ctx context.Context, key string) error

	Close(ctx context.Context) error
}
