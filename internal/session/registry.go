// Package session owns the mapping from opaque session identifiers to live
// analysis engines. The engine itself holds no synchronization, so each
// session carries a mutex that serializes every call made through it;
// different sessions never share state and run fully independently.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"datalens/internal/analysis"
)

// ErrSessionNotFound is returned for lookups of unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// DefaultTTL is how long an idle session survives before eviction.
const DefaultTTL = 2 * time.Hour

// Session pairs one engine with its serialization lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	lastUsed time.Time
	engine   *analysis.Engine
}

// Do runs fn while holding the session lock, serializing mutating and read
// calls against the same engine instance.
func (s *Session) Do(fn func(*analysis.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	return fn(s.engine)
}

// Registry is the in-memory session store.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a registry evicting sessions idle longer than ttl.
func NewRegistry(ttl time.Duration, logger *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "session_registry")),
		stop:     make(chan struct{}),
	}
}

// Create registers a new engine and returns its session ID.
func (r *Registry) Create(engine *analysis.Engine) *Session {
	s := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		lastUsed:  time.Now(),
		engine:    engine,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	count := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("session created",
		slog.String("session_id", s.ID),
		slog.Int("active_sessions", count),
	)
	return s
}

// Get returns the session for id or ErrSessionNotFound.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove discards a session. Removing an unknown ID is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// StartJanitor evicts idle sessions on the given interval until Close.
func (r *Registry) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.evictIdle()
			case <-r.stop:
				return
			}
		}
	}()
}

// Close stops the janitor.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *Registry) evictIdle() {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	var evicted []string
	for id, s := range r.sessions {
		s.mu.Lock()
		idle := s.lastUsed.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}
	r.mu.Unlock()

	for _, id := range evicted {
		r.logger.Info("session evicted", slog.String("session_id", id))
	}
}
