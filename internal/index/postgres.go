package index

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/oselz/docent/internal/log"
)

// DB is the subset of pgxpool.Pool the Postgres index depends on.
// Following Go best practices: interfaces are defined by the consumer,
// not the provider.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres is a pgvector-backed index over one session's document chunks.
// Chunks are stored per (session_id, generation); Swap writes a new
// generation and removes prior ones in a single transaction, so readers
// never observe a half-replaced document.
type Postgres struct {
	db        DB
	sessionID uuid.UUID
	dimension int
	length    int
	logger    log.Logger
}

var _ Index = (*Postgres)(nil)

// NewPostgres returns a Postgres index handle for sessionID. The handle
// starts empty; call Swap to load a document, or LoadLen to adopt chunks
// already present from a previous process.
func NewPostgres(db DB, sessionID uuid.UUID, dimension int, logger log.Logger) (*Postgres, error) {
	if dimension < 1 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Postgres{db: db, sessionID: sessionID, dimension: dimension, logger: logger}, nil
}

// Swap replaces the session's indexed chunks with entries. The new
// generation is inserted and all earlier generations deleted in one
// transaction; on any failure the previous chunks remain untouched.
func (p *Postgres) Swap(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if len(e.Vector) != p.dimension {
			return fmt.Errorf("%w: entry %d has dimension %d, want %d",
				ErrDimensionMismatch, e.Seq, len(e.Vector), p.dimension)
		}
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning index swap: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var generation int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(generation), 0) + 1 FROM session_chunks WHERE session_id = $1`,
		p.sessionID,
	).Scan(&generation)
	if err != nil {
		return fmt.Errorf("allocating chunk generation: %w", err)
	}

	for _, e := range entries {
		_, err = tx.Exec(ctx,
			`INSERT INTO session_chunks (session_id, generation, seq, content, embedding)
			 VALUES ($1, $2, $3, $4, $5)`,
			p.sessionID, generation, e.Seq, e.Text, pgvector.NewVector(e.Vector),
		)
		if err != nil {
			return fmt.Errorf("inserting chunk %d: %w", e.Seq, err)
		}
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM session_chunks WHERE session_id = $1 AND generation < $2`,
		p.sessionID, generation,
	)
	if err != nil {
		return fmt.Errorf("deleting stale chunk generations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing index swap: %w", err)
	}

	p.length = len(entries)
	p.logger.Debug("swapped chunk generation",
		"session_id", p.sessionID, "generation", generation, "chunks", len(entries))
	return nil
}

// LoadLen refreshes the cached entry count from the database. Used when
// adopting a session whose chunks were written by a previous process.
func (p *Postgres) LoadLen(ctx context.Context) error {
	err := p.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_chunks WHERE session_id = $1`,
		p.sessionID,
	).Scan(&p.length)
	if err != nil {
		return fmt.Errorf("counting session chunks: %w", err)
	}
	return nil
}

// Search returns the k chunks nearest to vector by cosine distance,
// ties broken by ascending seq.
func (p *Postgres) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) != p.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d",
			ErrDimensionMismatch, len(vector), p.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	query := pgvector.NewVector(vector)
	rows, err := p.db.Query(ctx,
		`SELECT seq, content, embedding, 1 - (embedding <=> $2) AS score
		 FROM session_chunks
		 WHERE session_id = $1
		 ORDER BY embedding <=> $2, seq
		 LIMIT $3`,
		p.sessionID, query, k,
	)
	if err != nil {
		return nil, fmt.Errorf("searching session chunks: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			hit       Hit
			embedding pgvector.Vector
		)
		if err := rows.Scan(&hit.Entry.Seq, &hit.Entry.Text, &embedding, &hit.Score); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		hit.Entry.Vector = embedding.Slice()
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunk rows: %w", err)
	}
	return hits, nil
}

// Dimension returns the vector length this index was built with.
func (p *Postgres) Dimension() int { return p.dimension }

// Len returns the number of indexed entries as of the last Swap or LoadLen.
func (p *Postgres) Len() int { return p.length }
