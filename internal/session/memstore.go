package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oselz/docent/internal/memory"
)

// MemoryStore is the default Store: sessions and turns held in process
// memory. Suitable for single-node deployments and tests; use
// PostgresStore when history must survive restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Record
	turns    map[uuid.UUID][]memory.Turn
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]Record),
		turns:    make(map[uuid.UUID][]memory.Turn),
	}
}

// CreateSession persists a new session record.
func (s *MemoryStore) CreateSession(_ context.Context, id uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.sessions[id] = Record{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}
	return nil
}

// GetSession loads a session record.
func (s *MemoryStore) GetSession(_ context.Context, id uuid.UUID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.sessions[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return record, nil
}

// AppendTurn appends one turn to the session's history.
func (s *MemoryStore) AppendTurn(_ context.Context, id uuid.UUID, turn memory.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	s.turns[id] = append(s.turns[id], turn)
	record := s.sessions[id]
	record.UpdatedAt = time.Now()
	s.sessions[id] = record
	return nil
}

// Turns returns up to limit most recent turns, oldest first.
func (s *MemoryStore) Turns(_ context.Context, id uuid.UUID, limit int) ([]memory.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sessions[id]; !ok {
		return nil, ErrNotFound
	}
	turns := s.turns[id]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]memory.Turn, len(turns))
	copy(out, turns)
	return out, nil
}
