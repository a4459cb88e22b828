// Package index provides per-session vector indexes over document chunks.
//
// An index is built once from the chunks of a single ingested document and
// then only queried; replacing a session's document replaces the whole
// index. Two implementations exist: Memory (brute-force cosine over an
// immutable slice, the default) and Postgres (pgvector-backed, survives
// restarts).
package index

import (
	"context"
	"errors"
)

// ErrDimensionMismatch indicates a query vector whose length differs from
// the index's vector dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Entry is one indexed chunk: its position in the source document, its
// text, and its embedding vector.
type Entry struct {
	Seq    int
	Text   string
	Vector []float32
}

// Hit is a search result: the matching entry and its cosine similarity
// to the query vector (higher is more similar).
type Hit struct {
	Entry Entry
	Score float64
}

// Index answers nearest-neighbour queries over a document's chunks.
type Index interface {
	// Search returns up to k entries most similar to vector, ordered by
	// descending score with ties broken by ascending Seq. Returns
	// ErrDimensionMismatch if vector's length differs from Dimension().
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)

	// Dimension returns the vector length this index was built with.
	Dimension() int

	// Len returns the number of indexed entries.
	Len() int
}
