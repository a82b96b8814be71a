package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavemap/backend/internal/log"
	"github.com/pavemap/backend/internal/metrics"
)

// Manager owns every open session
type Manager struct {
	cfg    Config
	source DatasetSource
	idle   time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewManager creates a session manager. Sessions idle for longer than idle
// are closed by Run; zero disables eviction.
func NewManager(cfg Config, source DatasetSource, idle time.Duration) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		source:   source,
		idle:     idle,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Create opens a new session and starts its loop
func (m *Manager) Create() (*Session, error) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	s := New(uuid.NewString(), m.cfg, m.source)
	if err := s.Start(m.ctx); err != nil {
		return nil, fmt.Errorf("session: failed to start: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		s.Close()
		return nil, ErrClosed
	}
	m.sessions[s.ID()] = s
	metrics.ActiveSessions.Inc()
	log.Infow("session opened", "session", s.ID())
	return s, nil
}

// Get looks up a session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove closes and forgets a session
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.Close()
	metrics.ActiveSessions.Dec()
	log.Infow("session closed", "session", id)
	return nil
}

// Len returns the number of open sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Run evicts idle sessions every interval until ctx is done
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m.idle <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.EvictIdle(now)
		}
	}
}

// EvictIdle closes sessions that have been idle longer than the timeout
// and returns how many were closed
func (m *Manager) EvictIdle(now time.Time) int {
	if m.idle <= 0 {
		return 0
	}

	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if s.IdleFor(now) > m.idle {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	evicted := 0
	for _, id := range stale {
		if m.Remove(id) == nil {
			evicted++
			metrics.SessionsEvictedTotal.Inc()
		}
	}
	return evicted
}

// Shutdown closes every session and refuses new ones
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	m.cancel()
	for _, s := range sessions {
		<-s.Done()
		metrics.ActiveSessions.Dec()
	}
	log.Infow("sessions stopped", "count", len(sessions))
}
