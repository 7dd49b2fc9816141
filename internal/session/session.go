// ABOUTME: Session identity provider issuing and persisting opaque session IDs
// ABOUTME: One logical session per browser profile; lazily created on first access

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the persisted identity record correlating conversations with
// server-side workflow state.
type Session struct {
	ID           string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Store defines what the manager needs from storage. Load returns
// store.ErrNotFound (or any error) when no usable session is persisted.
type Store interface {
	LoadSession(ctx context.Context) (*Session, error)
	SaveSession(ctx context.Context, s *Session) error
}

// Manager owns the current session. It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	store   Store
	logger  *slog.Logger
	current *Session
	now     func() time.Time
}

// NewManager creates a session manager backed by the given store.
// A corrupt or missing persisted session is treated as "no session".
func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:  store,
		logger: logger.With("component", "session"),
		now:    time.Now,
	}
	m.load()
	return m
}

func (m *Manager) load() {
	s, err := m.store.LoadSession(context.Background())
	if err != nil {
		m.logger.Warn("no persisted session, creating new one", "reason", err)
		m.createLocked()
		return
	}
	m.current = s
}

// SessionID returns the current session id, creating a session if none exists.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		m.createLocked()
	}
	return m.current.ID
}

// NewSession unconditionally replaces the current session with a fresh one
// and returns the new id.
func (m *Manager) NewSession() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createLocked()
	return m.current.ID
}

// UpdateActivity stamps last_activity on the current session. No-op when no
// session exists yet.
func (m *Manager) UpdateActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return
	}
	m.current.LastActivity = m.now()
	m.saveLocked()
}

// Info returns a copy of the current session, or nil if none exists.
func (m *Manager) Info() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	s := *m.current
	return &s
}

func (m *Manager) createLocked() {
	now := m.now()
	m.current = &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		LastActivity: now,
	}
	m.saveLocked()
	m.logger.Debug("session created", "session_id", m.current.ID)
}

// saveLocked writes through to storage. Persistence is best-effort; the
// in-memory session stays authoritative when the write fails.
func (m *Manager) saveLocked() {
	if err := m.store.SaveSession(context.Background(), m.current); err != nil {
		m.logger.Error("failed to persist session", "error", err, "session_id", m.current.ID)
	}
}
