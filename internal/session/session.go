// Package session holds the per-conversation runtime state and its
// persistence boundary.
//
// A Session owns its vector index and conversation memory exclusively;
// the dispatcher serializes all access per session id, so the struct
// itself needs no locking. The Store interface persists session
// metadata and turn history; persistence failures are logged by callers
// and never fail a turn.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/oselz/docent/internal/index"
	"github.com/oselz/docent/internal/memory"
)

// ErrNotFound indicates the requested session does not exist.
var ErrNotFound = errors.New("session not found")

// Session is one user conversation's runtime state.
type Session struct {
	ID     uuid.UUID
	UserID string

	// ActiveAssistant is the command of the assistant all messages are
	// forwarded to; empty means default RAG behavior.
	ActiveAssistant string

	// Index is the vector index over the session's ingested document;
	// nil until a document is uploaded.
	Index index.Index

	// DocumentName names the currently indexed document.
	DocumentName string

	// Memory is the session's short-term conversation history.
	Memory *memory.Buffer
}

// New creates a session for userID with an empty memory buffer.
func New(userID string, maxMemoryTurns int) *Session {
	return &Session{
		ID:     uuid.New(),
		UserID: userID,
		Memory: memory.NewBuffer(maxMemoryTurns),
	}
}

// SetIndex replaces the session's document index and name in one step.
// Called only from the session's dispatch worker, so the swap is atomic
// with respect to queries.
func (s *Session) SetIndex(idx index.Index, documentName string) {
	s.Index = idx
	s.DocumentName = documentName
}

// Record is the persisted form of a session.
type Record struct {
	ID        uuid.UUID
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the persistence boundary for sessions and their turns.
type Store interface {
	// CreateSession persists a new session record.
	CreateSession(ctx context.Context, id uuid.UUID, userID string) error

	// GetSession loads a session record; ErrNotFound if absent.
	GetSession(ctx context.Context, id uuid.UUID) (Record, error)

	// AppendTurn appends one turn to the session's history in arrival
	// order.
	AppendTurn(ctx context.Context, id uuid.UUID, turn memory.Turn) error

	// Turns returns up to limit most recent turns, oldest first.
	// limit <= 0 means no limit.
	Turns(ctx context.Context, id uuid.UUID, limit int) ([]memory.Turn, error)
}
