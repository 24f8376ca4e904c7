package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Count for an absent or expired key.
var ErrCacheMiss = errors.New("cache: key not found")

// Counter is a store of fixed-window counters.
type Counter interface {
	// Increment adds one to key and returns the new count. The key expires
	// after window, counted from its first increment.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	Count(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
