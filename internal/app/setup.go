package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oselz/docent/db"
	"github.com/oselz/docent/internal/assistant"
	"github.com/oselz/docent/internal/assistant/healthcare"
	"github.com/oselz/docent/internal/config"
	"github.com/oselz/docent/internal/document"
	"github.com/oselz/docent/internal/index"
	"github.com/oselz/docent/internal/log"
	"github.com/oselz/docent/internal/provider"
	"github.com/oselz/docent/internal/rag"
	"github.com/oselz/docent/internal/router"
	"github.com/oselz/docent/internal/session"
	"github.com/oselz/docent/internal/websearch"
)

const dbPingTimeout = 5 * time.Second

// Setup assembles the application from cfg. Call Close on the returned
// App to release resources; Close is also safe after a setup failure.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	client, err := provider.NewClient(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing model provider: %w", err)
	}
	a.Provider = client

	splitter, err := document.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("configuring splitter: %w", err)
	}
	a.Ingestor = document.NewIngestor(splitter, client, logger)

	if err := a.setupStorage(ctx, cfg); err != nil {
		return nil, err
	}

	a.Sessions = session.NewManager(cfg.MemoryMaxTurns)
	a.Registry = assistant.Discover(logger, healthcare.New)

	search := websearch.New(cfg.SearXNG.BaseURL, logger)
	if !search.Configured() {
		logger.Info("web search disabled, no SearXNG URL configured")
	}

	engine, err := rag.NewEngine(rag.Config{
		Embedder:  client,
		Generator: client,
		Store:     a.Store,
		TopK:      cfg.TopK,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing query engine: %w", err)
	}
	a.Engine = engine

	r, err := router.New(router.Config{
		Registry: a.Registry,
		Engine:   engine,
		Search:   search,
		Store:    a.Store,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing router: %w", err)
	}
	a.Router = r

	a.Dispatcher = router.NewDispatcher(logger)

	return a, nil
}

// setupStorage selects the storage backend and wires the session store,
// index builder, and readiness probe to it.
func (a *App) setupStorage(ctx context.Context, cfg *config.Config) error {
	if cfg.Storage != config.StoragePostgres {
		a.Store = session.NewMemoryStore()
		a.BuildIndex = func(_ context.Context, _ uuid.UUID, entries []index.Entry) (index.Index, error) {
			return index.NewMemory(entries, cfg.EmbedderDimension)
		}
		return nil
	}

	pool, err := providePool(ctx, cfg, a.Logger)
	if err != nil {
		return err
	}
	a.Pool = pool
	a.Store = session.NewPostgresStore(pool, a.Logger)
	a.Ready = pool.Ping
	a.BuildIndex = func(ctx context.Context, sessionID uuid.UUID, entries []index.Entry) (index.Index, error) {
		idx, err := index.NewPostgres(pool, sessionID, cfg.EmbedderDimension, a.Logger)
		if err != nil {
			return nil, err
		}
		if err := idx.Swap(ctx, entries); err != nil {
			return nil, err
		}
		return idx, nil
	}
	return nil
}

// providePool runs migrations and opens the postgres connection pool.
func providePool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
