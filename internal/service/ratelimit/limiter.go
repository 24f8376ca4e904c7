package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	drepo "GoldPredict/internal/domain/repository"
)

type bucket struct {
	lim  *rate.Limiter
	last time.Time
}

// Limiter is an in-process token bucket per key.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*bucket
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time
}

// New creates a limiter refilling rps tokens per second up to burst.
func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		m:     make(map[string]*bucket),
		limit: rate.Limit(rps),
		burst: burst,
		idle:  10 * time.Minute,
		now:   time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		l.pruneLocked(now)
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.m[key] = b
	}
	b.last = now
	return b.lim.AllowN(now, 1), nil
}

// pruneLocked drops buckets untouched for longer than idle. A bucket idle
// that long has refilled, so dropping it does not change any decision.
func (l *Limiter) pruneLocked(now time.Time) {
	for k, b := range l.m {
		if now.Sub(b.last) > l.idle {
			delete(l.m, k)
		}
	}
}

var _ drepo.SubmissionLimiter = (*Limiter)(nil)
