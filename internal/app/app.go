// Package app assembles the document-chat pipeline from configuration:
// provider client, ingestion, storage, assistants, routing, and the
// per-session dispatcher. cmd wires the result into HTTP or one-shot use.
package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oselz/docent/internal/assistant"
	"github.com/oselz/docent/internal/config"
	"github.com/oselz/docent/internal/document"
	"github.com/oselz/docent/internal/index"
	"github.com/oselz/docent/internal/log"
	"github.com/oselz/docent/internal/provider"
	"github.com/oselz/docent/internal/rag"
	"github.com/oselz/docent/internal/router"
	"github.com/oselz/docent/internal/session"
)

// App holds the assembled application.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Provider *provider.Client
	Registry *assistant.Registry
	Sessions *session.Manager
	Store    session.Store
	Ingestor *document.Ingestor
	Engine   *rag.Engine
	Router   *router.Router

	// Dispatcher serializes all work per session.
	Dispatcher *router.Dispatcher

	// BuildIndex creates a session's index from ingested entries using
	// the configured storage backend.
	BuildIndex func(ctx context.Context, sessionID uuid.UUID, entries []index.Entry) (index.Index, error)

	// Ready probes storage health; nil when there is nothing to probe.
	Ready func(ctx context.Context) error

	// Pool is the postgres connection pool, nil for in-memory storage.
	Pool *pgxpool.Pool
}

// Close releases the application's resources. Safe to call on a
// partially initialized App.
func (a *App) Close() {
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
