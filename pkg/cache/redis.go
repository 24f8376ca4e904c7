package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// RedisCache is a Counter shared by every replica pointing at the same
// Redis. Keys are stored as "<prefix>:<key>".
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache connects and pings the server, retrying per
// WithRedisConnectRetries.
func NewRedisCache(opts ...RedisOption) (*RedisCache, error) {
	cfg := RedisConfig{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  30 * time.Second,
		Prefix:       "goldpredict",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		PoolTimeout:  cfg.PoolTimeout,
	})

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.Retries)
	err := backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return rdb.Ping(ctx).Err()
	}, policy)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb, prefix: cfg.Prefix}, nil
}

// Increment bumps key and sets its TTL on first use only, so the window is
// anchored at the first hit.
func (c *RedisCache) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := c.key(key)
	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.ExpireNX(ctx, k, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *RedisCache) Count(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Get(ctx, c.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	return n, err
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.key(k))
	}
	return c.rdb.Unlink(ctx, full...).Err()
}

func (c *RedisCache) Close() error { return c.rdb.Close() }

func (c *RedisCache) key(k string) string { return Key(c.prefix, k) }

var _ Counter = (*RedisCache)(nil)
