package cache

import "time"

// RedisConfig describes the Redis connection backing RedisCache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int
	PoolTimeout  time.Duration

	// Prefix namespaces every key written by this process.
	Prefix  string
	Retries uint64
}

type RedisOption func(*RedisConfig)

func WithRedisHost(host string) RedisOption {
	return func(c *RedisConfig) { c.Host = host }
}

func WithRedisPort(port int) RedisOption {
	return func(c *RedisConfig) { c.Port = port }
}

func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) { c.Password = password }
}

func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) { c.DB = db }
}

// WithRedisPool sizes the client pool.
func WithRedisPool(size, minIdle int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize, c.MinIdleConns, c.PoolTimeout = size, minIdle, timeout
	}
}

func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// WithRedisConnectRetries retries the initial ping n times with exponential backoff.
func WithRedisConnectRetries(n uint64) RedisOption {
	return func(c *RedisConfig) { c.Retries = n }
}

// MemoryConfig bounds the in-process counter store.
type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
}

type MemoryOption func(*MemoryConfig)

// WithMemoryMaxSize caps the number of tracked keys.
func WithMemoryMaxSize(n int) MemoryOption {
	return func(c *MemoryConfig) { c.MaxSize = n }
}

func WithMemoryCleanup(every time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.CleanupInterval = every }
}
