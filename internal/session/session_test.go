package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oselz/docent/internal/index"
	"github.com/oselz/docent/internal/memory"
)

func TestNew(t *testing.T) {
	sess := New("alice", 30)
	assert.NotEqual(t, uuid.Nil, sess.ID)
	assert.Equal(t, "alice", sess.UserID)
	assert.Empty(t, sess.ActiveAssistant)
	assert.Nil(t, sess.Index)
	require.NotNil(t, sess.Memory)
	assert.Equal(t, 0, sess.Memory.Len())
}

func TestSetIndex(t *testing.T) {
	sess := New("alice", 30)

	idx, err := index.NewMemory([]index.Entry{
		{Seq: 0, Text: "chunk", Vector: []float32{1, 0}},
	}, 2)
	require.NoError(t, err)

	sess.SetIndex(idx, "report.txt")
	assert.Same(t, index.Index(idx), sess.Index)
	assert.Equal(t, "report.txt", sess.DocumentName)

	// Replacing the document swaps both fields together.
	replacement, err := index.NewMemory(nil, 2)
	require.NoError(t, err)
	sess.SetIndex(replacement, "other.txt")
	assert.Same(t, index.Index(replacement), sess.Index)
	assert.Equal(t, "other.txt", sess.DocumentName)
}

func TestMemoryStore_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()

	_, err := store.GetSession(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.CreateSession(ctx, id, "bob"))

	record, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, "bob", record.UserID)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestMemoryStore_Turns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()
	require.NoError(t, store.CreateSession(ctx, id, "bob"))

	require.NoError(t, store.AppendTurn(ctx, id, memory.Turn{Role: memory.RoleUser, Text: "one"}))
	require.NoError(t, store.AppendTurn(ctx, id, memory.Turn{Role: memory.RoleAssistant, Text: "two"}))
	require.NoError(t, store.AppendTurn(ctx, id, memory.Turn{Role: memory.RoleUser, Text: "three"}))

	all, err := store.Turns(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "one", all[0].Text)
	assert.Equal(t, "three", all[2].Text)

	// Limit keeps the most recent turns, still oldest first.
	recent, err := store.Turns(ctx, id, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Text)
	assert.Equal(t, "three", recent[1].Text)
}

func TestMemoryStore_UnknownSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()

	err := store.AppendTurn(ctx, id, memory.Turn{Role: memory.RoleUser, Text: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Turns(ctx, id, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_TurnsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()
	require.NoError(t, store.CreateSession(ctx, id, "bob"))
	require.NoError(t, store.AppendTurn(ctx, id, memory.Turn{Role: memory.RoleUser, Text: "original"}))

	turns, err := store.Turns(ctx, id, 0)
	require.NoError(t, err)
	turns[0].Text = "mutated"

	again, err := store.Turns(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Text)
}
