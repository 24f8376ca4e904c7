package cache

import (
	"context"
	"sync"
	"time"
)

type counterEntry struct {
	count    int64
	expireAt time.Time
	lastUsed time.Time
}

func (e *counterEntry) expired(now time.Time) bool { return now.After(e.expireAt) }

// MemoryCache is a process-local Counter. When full, the least recently
// incremented key is evicted; a background sweep drops expired keys.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*counterEntry
	maxSize int
	now     func() time.Time

	sweep *time.Ticker
	stop  chan struct{}
	once  sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := MemoryConfig{MaxSize: 10000, CleanupInterval: 5 * time.Minute}
	for _, opt := range opts {
		opt(&cfg)
	}

	mc := &MemoryCache{
		entries: make(map[string]*counterEntry),
		maxSize: cfg.MaxSize,
		now:     time.Now,
		sweep:   time.NewTicker(cfg.CleanupInterval),
		stop:    make(chan struct{}),
	}
	go mc.sweepLoop()
	return mc
}

func (mc *MemoryCache) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	e, ok := mc.entries[key]
	switch {
	case !ok:
		if len(mc.entries) >= mc.maxSize {
			mc.evictOldest()
		}
		fallthrough
	case e.expired(now):
		e = &counterEntry{expireAt: now.Add(window)}
		mc.entries[key] = e
	}
	e.count++
	e.lastUsed = now
	return e.count, nil
}

func (mc *MemoryCache) Count(_ context.Context, key string) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	e, ok := mc.entries[key]
	if !ok {
		return 0, ErrCacheMiss
	}
	if e.expired(mc.now()) {
		delete(mc.entries, key)
		return 0, ErrCacheMiss
	}
	return e.count, nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	for _, k := range keys {
		delete(mc.entries, k)
	}
	mc.mu.Unlock()
	return nil
}

// Len returns the number of tracked keys, expired ones included.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.entries)
}

func (mc *MemoryCache) evictOldest() {
	var (
		victim string
		oldest time.Time
		found  bool
	)
	for k, e := range mc.entries {
		if !found || e.lastUsed.Before(oldest) {
			victim, oldest, found = k, e.lastUsed, true
		}
	}
	if found {
		delete(mc.entries, victim)
	}
}

func (mc *MemoryCache) removeExpired() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	for k, e := range mc.entries {
		if e.expired(now) {
			delete(mc.entries, k)
		}
	}
}

func (mc *MemoryCache) sweepLoop() {
	for {
		select {
		case <-mc.sweep.C:
			mc.removeExpired()
		case <-mc.stop:
			return
		}
	}
}

// Close stops the sweep goroutine. It is safe to call more than once.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() {
		mc.sweep.Stop()
		close(mc.stop)
	})
	return nil
}

var _ Counter = (*MemoryCache)(nil)
