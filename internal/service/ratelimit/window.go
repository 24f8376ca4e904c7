package ratelimit

import (
	"context"
	"time"

	drepo "GoldPredict/internal/domain/repository"
	"GoldPredict/pkg/cache"
)

// WindowLimiter allows at most limit hits per key in each fixed window,
// counted in a shared store so every replica sees the same budget.
type WindowLimiter struct {
	store  cache.Counter
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewWindowLimiter creates a fixed-window limiter over store.
func NewWindowLimiter(store cache.Counter, limit int, window time.Duration) *WindowLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &WindowLimiter{store: store, limit: int64(limit), window: window, now: time.Now}
}

// Allow counts a hit for key in the current window.
func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := l.now().UnixNano() / int64(l.window)
	n, err := l.store.Increment(ctx, cache.Key("ratelimit", key, slot), l.window)
	if err != nil {
		return false, err
	}
	return n <= l.limit, nil
}

var _ drepo.SubmissionLimiter = (*WindowLimiter)(nil)
