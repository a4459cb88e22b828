// Package memory keeps short-term conversation history for a session.
// The buffer holds recent turns in order and evicts the oldest once the
// configured budget is exceeded.
package memory

import "sync"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the conversation.
type Turn struct {
	Role Role
	Text string
}

// Buffer is a bounded conversation history. It is safe for concurrent
// use; eviction only happens when EvictIfOverBudget is called, so a
// caller can append both turns of an exchange before trimming.
type Buffer struct {
	mu       sync.Mutex
	turns    []Turn
	maxTurns int
}

// NewBuffer creates a Buffer keeping at most maxTurns turns. A
// non-positive maxTurns disables eviction.
func NewBuffer(maxTurns int) *Buffer {
	return &Buffer{maxTurns: maxTurns}
}

// Append adds a turn to the end of the history.
func (b *Buffer) Append(t Turn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = append(b.turns, t)
}

// Snapshot returns a copy of the history, oldest turn first. Mutating
// the returned slice does not affect the buffer.
func (b *Buffer) Snapshot() []Turn {
	b.mu.Lock()
	defer b.mu.Unlock()
	snapshot := make([]Turn, len(b.turns))
	copy(snapshot, b.turns)
	return snapshot
}

// Len returns the current number of turns.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.turns)
}

// EvictIfOverBudget drops the oldest turns until the buffer is within
// its budget. Returns the number of turns evicted.
func (b *Buffer) EvictIfOverBudget() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.maxTurns <= 0 || len(b.turns) <= b.maxTurns {
		return 0
	}
	evicted := len(b.turns) - b.maxTurns
	b.turns = append(b.turns[:0:0], b.turns[evicted:]...)
	return evicted
}
