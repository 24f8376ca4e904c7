package usecase

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRegistry(t *testing.T, clock *fakeClock, opts ...RegistryOption) *SessionRegistry {
	t.Helper()
	r := NewSessionRegistry(func(id string) *FormController {
		return NewFormController(id, &fakePredictor{})
	}, opts...)
	r.now = clock.Now
	t.Cleanup(r.Close)
	return r
}

func TestRegistryCreateAndGet(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	r := newTestRegistry(t, clock)

	a := r.Create()
	b := r.Create()
	if a.ID() == "" || a.ID() == b.ID() {
		t.Fatalf("expected distinct ids, got %q and %q", a.ID(), b.ID())
	}
	got, err := r.Get(a.ID())
	if err != nil || got != a {
		t.Fatalf("Get returned %v, %v", got, err)
	}
	if _, err := r.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	r.Delete(a.ID())
	if _, err := r.Get(a.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected deleted session to be gone")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", r.Len())
	}
}

func TestRegistryExpiresIdleSessions(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	r := newTestRegistry(t, clock, WithSessionTTL(10*time.Minute))

	keep := r.Create()
	drop := r.Create()

	clock.Advance(6 * time.Minute)
	if _, err := r.Get(keep.ID()); err != nil {
		t.Fatalf("keep should be alive: %v", err)
	}
	clock.Advance(6 * time.Minute)
	if _, err := r.Get(drop.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("drop should have expired, got %v", err)
	}
	if _, err := r.Get(keep.ID()); err != nil {
		t.Fatalf("keep was refreshed and should be alive: %v", err)
	}

	clock.Advance(11 * time.Minute)
	r.sweep()
	if r.Len() != 0 {
		t.Fatalf("sweep should remove expired sessions, %d left", r.Len())
	}
}

func TestRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	r := newTestRegistry(t, clock, WithMaxSessions(2))

	first := r.Create()
	clock.Advance(time.Second)
	second := r.Create()
	clock.Advance(time.Second)
	if _, err := r.Get(first.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(time.Second)
	third := r.Create()

	if r.Len() != 2 {
		t.Fatalf("expected cap of 2, got %d", r.Len())
	}
	if _, err := r.Get(second.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second should have been evicted")
	}
	for _, c := range []*FormController{first, third} {
		if _, err := r.Get(c.ID()); err != nil {
			t.Fatalf("%s should be alive: %v", c.ID(), err)
		}
	}
}
