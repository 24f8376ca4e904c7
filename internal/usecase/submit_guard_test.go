package usecase

import (
	"context"
	"errors"
	"testing"
)

type stubLimiter struct {
	ok  bool
	err error
}

func (l stubLimiter) Allow(context.Context, string) (bool, error) { return l.ok, l.err }

func TestSubmitGuard(t *testing.T) {
	ctx := context.Background()

	var nilGuard *SubmitGuard
	if !nilGuard.Allow(ctx, "ip") {
		t.Fatal("nil guard should allow")
	}
	if !NewSubmitGuard(nil, nil, nil).Allow(ctx, "ip") {
		t.Fatal("guard without limiter should allow")
	}
	if NewSubmitGuard(stubLimiter{ok: false}, nil, nil).Allow(ctx, "ip") {
		t.Fatal("denied key should be rejected")
	}

	m := newCountingMetrics()
	if !NewSubmitGuard(stubLimiter{err: errors.New("redis down")}, m, nil).Allow(ctx, "ip") {
		t.Fatal("limiter failure should fail open")
	}
	if m.errs["ratelimit"] != 1 {
		t.Fatalf("expected ratelimit error to be counted, got %v", m.errs)
	}
}
