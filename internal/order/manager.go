package order

import (
	"sync"

	"github.com/google/uuid"
)

// Manager owns the live order-entry sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewManager constructs an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: map[uuid.UUID]*Session{}}
}

// Create starts a new session in the initial state.
func (m *Manager) Create() *Session {
	sess := &Session{ID: uuid.New(), state: StateNoClient}
	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	return sess
}

// Get looks up a session by id.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Remove discards a session.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
