package index

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Memory is a brute-force in-memory index. Entries are copied at
// construction and never mutated afterwards, so a Memory is safe for
// concurrent readers without locking; replacing a document means
// building a new Memory and swapping the reference.
type Memory struct {
	entries   []Entry
	dimension int
}

var _ Index = (*Memory)(nil)

// NewMemory builds an index over entries. Every entry vector must have
// length dimension; a mismatch returns ErrDimensionMismatch.
func NewMemory(entries []Entry, dimension int) (*Memory, error) {
	if dimension < 1 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	frozen := make([]Entry, len(entries))
	for i, e := range entries {
		if len(e.Vector) != dimension {
			return nil, fmt.Errorf("%w: entry %d has dimension %d, want %d",
				ErrDimensionMismatch, e.Seq, len(e.Vector), dimension)
		}
		frozen[i] = e
	}
	return &Memory{entries: frozen, dimension: dimension}, nil
}

// Search scans all entries and returns the k most similar by cosine
// similarity, ties broken by ascending Seq.
func (m *Memory) Search(_ context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d",
			ErrDimensionMismatch, len(vector), m.dimension)
	}
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(m.entries))
	for _, e := range m.entries {
		hits = append(hits, Hit{Entry: e, Score: cosineSimilarity(vector, e.Vector)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Entry.Seq < hits[j].Entry.Seq
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Dimension returns the vector length this index was built with.
func (m *Memory) Dimension() int { return m.dimension }

// Len returns the number of indexed entries.
func (m *Memory) Len() int { return len(m.entries) }

// cosineSimilarity computes the cosine of the angle between two equal
// length vectors. A zero vector yields similarity 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
