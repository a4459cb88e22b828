// Package api exposes the document-chat pipeline over HTTP.
//
// Endpoints:
//
//	GET  /health                      liveness probe
//	GET  /ready                       readiness probe (storage ping)
//	POST /api/sessions                create a session
//	GET  /api/sessions/{id}           session metadata
//	GET  /api/assistants              registered assistants
//	POST /api/sessions/{id}/document  upload and index a document
//	POST /api/chat                    synchronous chat (JSON)
//	POST /api/chat/stream             streaming chat (SSE)
//
// All chat and document traffic for a session runs through the dispatcher,
// so requests against the same session execute in arrival order.
//
// File structure:
//   - server.go: server setup and lifecycle
//   - middleware.go: recovery, logging, identity
//   - ratelimit.go: per-IP token bucket
//   - response.go: JSON response helpers
//   - session.go: session endpoints
//   - document.go: document upload endpoint
//   - chat.go: chat endpoints (JSON and SSE)
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oselz/docent/internal/assistant"
	"github.com/oselz/docent/internal/document"
	"github.com/oselz/docent/internal/index"
	"github.com/oselz/docent/internal/log"
	"github.com/oselz/docent/internal/provider"
	"github.com/oselz/docent/internal/rag"
	"github.com/oselz/docent/internal/session"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "localhost:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 30 * time.Second

	// ReadHeaderTimeout bounds header reads to prevent Slowloris-style
	// connection exhaustion.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Generous because SSE responses stay open for the whole generation.
	WriteTimeout = 2 * time.Minute

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 2 * time.Minute
)

// Pipeline handles one routed conversation turn. *router.Router satisfies it.
type Pipeline interface {
	Handle(ctx context.Context, sess *session.Session, message string, stream provider.StreamFunc) (rag.Answer, error)
}

// Dispatcher serializes work per session. *router.Dispatcher satisfies it.
type Dispatcher interface {
	Do(ctx context.Context, sessionID uuid.UUID, fn func(context.Context) error) error
}

// IndexBuilder turns ingested entries into the session's queryable index.
// The storage backend decides the concrete implementation: in-memory
// storage builds an index.Memory, postgres storage swaps the persisted
// chunk generation for the session.
type IndexBuilder func(ctx context.Context, sessionID uuid.UUID, entries []index.Entry) (index.Index, error)

// Config wires the server's collaborators.
type Config struct {
	Logger     log.Logger
	Registry   *assistant.Registry
	Pipeline   Pipeline
	Dispatcher Dispatcher
	Sessions   *session.Manager
	Store      session.Store
	Ingestor   *document.Ingestor
	BuildIndex IndexBuilder

	// Ready probes storage health for GET /ready; nil reports ready
	// unconditionally (in-memory storage).
	Ready func(ctx context.Context) error

	// IdentityHeader names the trusted reverse-proxy header carrying the
	// authenticated user; AnonymousUser is used when the header is absent.
	IdentityHeader string
	AnonymousUser  string

	// RateBurst is the per-IP token bucket burst (0 = default 60).
	RateBurst int
	// TrustProxy enables X-Real-IP / X-Forwarded-For for rate limit keys.
	TrustProxy bool
}

// Server is the HTTP server for the document-chat API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer creates a server with all routes registered.
func NewServer(cfg Config) (*Server, error) {
	switch {
	case cfg.Registry == nil:
		return nil, errors.New("api: registry is required")
	case cfg.Pipeline == nil:
		return nil, errors.New("api: pipeline is required")
	case cfg.Dispatcher == nil:
		return nil, errors.New("api: dispatcher is required")
	case cfg.Sessions == nil:
		return nil, errors.New("api: session manager is required")
	case cfg.Store == nil:
		return nil, errors.New("api: session store is required")
	case cfg.Ingestor == nil:
		return nil, errors.New("api: ingestor is required")
	case cfg.BuildIndex == nil:
		return nil, errors.New("api: index builder is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	sh := &sessionHandler{
		sessions:   cfg.Sessions,
		store:      cfg.Store,
		registry:   cfg.Registry,
		dispatcher: cfg.Dispatcher,
		logger:     logger,
	}
	dh := &documentHandler{
		sessions:   cfg.Sessions,
		dispatcher: cfg.Dispatcher,
		ingestor:   cfg.Ingestor,
		buildIndex: cfg.BuildIndex,
		logger:     logger,
	}
	ch := &chatHandler{
		sessions:   cfg.Sessions,
		dispatcher: cfg.Dispatcher,
		pipeline:   cfg.Pipeline,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", sh.create)
	mux.HandleFunc("GET /api/sessions/{id}", sh.get)
	mux.HandleFunc("GET /api/assistants", sh.listAssistants)
	mux.HandleFunc("POST /api/sessions/{id}/document", dh.upload)
	mux.HandleFunc("POST /api/chat", ch.send)
	mux.HandleFunc("POST /api/chat/stream", ch.stream)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   recovery → logging → rate limit → identity → routes
	var handler http.Handler = mux
	handler = identityMiddleware(cfg.IdentityHeader, cfg.AnonymousUser)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack so load balancers are
	// never rate limited or logged per poll.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", liveness)
	topMux.Handle("GET /ready", readiness(cfg.Ready, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux, logger: logger}, nil
}

// Handler returns the server's root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the HTTP server and blocks until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// liveness reports the process is alive.
func liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness reports whether storage is reachable.
func readiness(probe func(ctx context.Context) error, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if probe != nil {
			if err := probe(r.Context()); err != nil {
				logger.Error("readiness check failed", "error", err)
				http.Error(w, "storage not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
