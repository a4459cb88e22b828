package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oselz/docent/internal/log"
	"github.com/oselz/docent/internal/memory"
)

// DB is the subset of pgxpool.Pool the PostgresStore depends on.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists sessions and turns in PostgreSQL. Turns carry
// a per-session sequence number so history order never depends on
// timestamps.
type PostgresStore struct {
	db     DB
	logger log.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store backed by db.
func NewPostgresStore(db DB, logger log.Logger) *PostgresStore {
	if logger == nil {
		logger = log.NewNop()
	}
	return &PostgresStore{db: db, logger: logger}
}

// CreateSession persists a new session record.
func (s *PostgresStore) CreateSession(ctx context.Context, id uuid.UUID, userID string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO sessions (id, user_id) VALUES ($1, $2)`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("creating session %s: %w", id, err)
	}
	s.logger.Debug("created session", "session_id", id, "user_id", userID)
	return nil
}

// GetSession loads a session record; ErrNotFound if absent.
func (s *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (Record, error) {
	var record Record
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, created_at, updated_at FROM sessions WHERE id = $1`,
		id,
	).Scan(&record.ID, &record.UserID, &record.CreatedAt, &record.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("getting session %s: %w", id, err)
	}
	return record, nil
}

// AppendTurn appends one turn with the next sequence number for the
// session.
func (s *PostgresStore) AppendTurn(ctx context.Context, id uuid.UUID, turn memory.Turn) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO session_turns (session_id, seq, role, content)
		 SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3
		 FROM session_turns WHERE session_id = $1`,
		id, string(turn.Role), turn.Text,
	)
	if err != nil {
		return fmt.Errorf("appending turn to session %s: %w", id, err)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE sessions SET updated_at = now() WHERE id = $1`, id)
	if err != nil {
		// History was written; a stale updated_at is tolerable.
		s.logger.Warn("updating session timestamp", "session_id", id, "error", err)
	}
	return nil
}

// Turns returns up to limit most recent turns, oldest first.
func (s *PostgresStore) Turns(ctx context.Context, id uuid.UUID, limit int) ([]memory.Turn, error) {
	query := `SELECT role, content FROM session_turns WHERE session_id = $1 ORDER BY seq`
	args := []any{id}
	if limit > 0 {
		query = `SELECT role, content FROM (
			SELECT role, content, seq FROM session_turns
			WHERE session_id = $1 ORDER BY seq DESC LIMIT $2
		) recent ORDER BY seq`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading turns for session %s: %w", id, err)
	}
	defer rows.Close()

	var turns []memory.Turn
	for rows.Next() {
		var role string
		var turn memory.Turn
		if err := rows.Scan(&role, &turn.Text); err != nil {
			return nil, fmt.Errorf("scanning turn row: %w", err)
		}
		turn.Role = memory.Role(role)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading turn rows: %w", err)
	}
	return turns, nil
}
