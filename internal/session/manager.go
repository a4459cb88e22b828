package session

import (
	"sync"

	"github.com/google/uuid"
)

// Manager is the in-process registry of live sessions. It owns the runtime
// state (index, conversation buffer, active assistant) that the persistence
// Store does not carry. Sessions stay resident until the process exits;
// durable history lives in the Store.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	maxTurns int
}

// NewManager creates a registry whose sessions keep at most maxTurns
// conversation turns in memory.
func NewManager(maxTurns int) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		maxTurns: maxTurns,
	}
}

// Create registers a new session owned by userID and returns it.
func (m *Manager) Create(userID string) *Session {
	sess := New(userID, m.maxTurns)

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	return sess
}

// Get returns the live session with the given ID.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
