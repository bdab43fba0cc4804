package cache

import (
	"context"
	"time"
)

// Store is the key/value cache shared by engine instances. Values are opaque
// bytes; counters written by IncrementWithTTL are stored as decimal strings so
// Get can read them back.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
