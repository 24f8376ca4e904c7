package usecase

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// ControllerFactory builds the controller for a new session id.
type ControllerFactory func(id string) *FormController

// RegistryOption configures SessionRegistry.
type RegistryOption func(*RegistryConfig)

// RegistryConfig holds session registry configuration.
type RegistryConfig struct {
	TTL             time.Duration
	MaxSessions     int
	CleanupInterval time.Duration
}

// WithSessionTTL sets the idle lifetime of a session.
func WithSessionTTL(ttl time.Duration) RegistryOption {
	return func(c *RegistryConfig) {
		if ttl > 0 {
			c.TTL = ttl
		}
	}
}

// WithMaxSessions caps the number of live sessions; the least recently used is evicted.
func WithMaxSessions(n int) RegistryOption {
	return func(c *RegistryConfig) {
		if n > 0 {
			c.MaxSessions = n
		}
	}
}

// WithCleanupInterval sets how often expired sessions are swept.
func WithCleanupInterval(d time.Duration) RegistryOption {
	return func(c *RegistryConfig) {
		if d > 0 {
			c.CleanupInterval = d
		}
	}
}

type sessionEntry struct {
	ctrl     *FormController
	lastSeen time.Time
}

// SessionRegistry keeps one FormController per browser session in memory.
type SessionRegistry struct {
	factory ControllerFactory
	cfg     RegistryConfig
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry

	ticker    *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

// NewSessionRegistry creates a registry and starts its expiry sweeper.
func NewSessionRegistry(factory ControllerFactory, opts ...RegistryOption) *SessionRegistry {
	cfg := RegistryConfig{
		TTL:             30 * time.Minute,
		MaxSessions:     10000,
		CleanupInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &SessionRegistry{
		factory:  factory,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
		ticker:   time.NewTicker(cfg.CleanupInterval),
		done:     make(chan struct{}),
	}
	go r.cleanupExpired()
	return r
}

// Create starts a new session with a fresh controller.
func (r *SessionRegistry) Create() *FormController {
	id := uuid.NewString()
	ctrl := r.factory(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.cfg.MaxSessions {
		r.evictLRU()
	}
	r.sessions[id] = &sessionEntry{ctrl: ctrl, lastSeen: r.now()}
	return ctrl
}

// NewDetached builds a controller with a fresh id that the registry does not
// track. Stateless callers use it for one-off submissions.
func (r *SessionRegistry) NewDetached() *FormController {
	return r.factory(uuid.NewString())
}

// Get returns the controller for id and refreshes its idle timer.
func (r *SessionRegistry) Get(id string) (*FormController, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := r.now()
	if now.Sub(e.lastSeen) > r.cfg.TTL {
		r.removeLocked(id)
		return nil, ErrSessionNotFound
	}
	e.lastSeen = now
	return e.ctrl, nil
}

// Delete ends a session.
func (r *SessionRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops the sweeper and cancels every in-flight submission.
func (r *SessionRegistry) Close() {
	r.closeOnce.Do(func() {
		r.ticker.Stop()
		close(r.done)

		r.mu.Lock()
		defer r.mu.Unlock()
		for id := range r.sessions {
			r.removeLocked(id)
		}
	})
}

func (r *SessionRegistry) removeLocked(id string) {
	if e, ok := r.sessions[id]; ok {
		e.ctrl.Close()
		delete(r.sessions, id)
	}
}

func (r *SessionRegistry) evictLRU() {
	var oldestID string
	var oldest time.Time
	for id, e := range r.sessions {
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID, oldest = id, e.lastSeen
		}
	}
	if oldestID != "" {
		r.removeLocked(oldestID)
	}
}

func (r *SessionRegistry) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, e := range r.sessions {
		if now.Sub(e.lastSeen) > r.cfg.TTL {
			r.removeLocked(id)
		}
	}
}

func (r *SessionRegistry) cleanupExpired() {
	for {
		select {
		case <-r.ticker.C:
			r.sweep()
		case <-r.done:
			return
		}
	}
}
