// Package router is the dispatch core: it parses each inbound message,
// resolves precedence among assistant commands, shared utilities and the
// default RAG path, and executes the selected handler. A per-session
// dispatcher (dispatcher.go) serializes handling so no session ever
// processes two messages concurrently.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oselz/docent/internal/assistant"
	"github.com/oselz/docent/internal/chart"
	"github.com/oselz/docent/internal/log"
	"github.com/oselz/docent/internal/memory"
	"github.com/oselz/docent/internal/provider"
	"github.com/oselz/docent/internal/rag"
	"github.com/oselz/docent/internal/session"
	"github.com/oselz/docent/internal/websearch"
)

const assistantUsage = "Usage: `/assistant list` to see available assistants, " +
	"`/assistant <name>` to switch, or `/<command> <message>` to invoke one directly."

const searchUsage = "Please provide a query after the `/search` command. " +
	"Example: `/search latest Go release`"

const searchNotConfigured = "Web search is not configured. " +
	"Set `searxng.base_url` in the configuration and restart."

// QueryEngine is the RAG fallthrough the router dispatches to.
type QueryEngine interface {
	Query(ctx context.Context, sess *session.Session, text string, stream provider.StreamFunc) (rag.Answer, error)
}

// Searcher is the shared /search handler's backend.
type Searcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

// Router executes routing decisions.
type Router struct {
	registry *assistant.Registry
	engine   QueryEngine
	search   Searcher
	store    session.Store
	logger   log.Logger
}

// Config assembles a Router.
type Config struct {
	Registry *assistant.Registry
	Engine   QueryEngine
	Search   Searcher
	Store    session.Store
	Logger   log.Logger
}

// New validates cfg and creates a Router.
func New(cfg Config) (*Router, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("query engine is required")
	}
	if cfg.Search == nil {
		return nil, errors.New("searcher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Router{
		registry: cfg.Registry,
		engine:   cfg.Engine,
		search:   cfg.Search,
		store:    cfg.Store,
		logger:   logger,
	}, nil
}

// Handle routes one message for sess and runs the selected handler.
// Must be called under the session's dispatch worker. The user turn is
// recorded whether or not the handler succeeds; the assistant turn only
// on success. The RAG engine does its own turn accounting.
func (r *Router) Handle(ctx context.Context, sess *session.Session, message string, stream provider.StreamFunc) (rag.Answer, error) {
	decision := Parse(message, sess, r.registry)

	if decision.Target == TargetRAG {
		return r.engine.Query(ctx, sess, decision.Residual, stream)
	}

	r.recordUserTurn(ctx, sess, strings.TrimSpace(message))

	reply, err := r.execute(ctx, sess, decision)
	if err != nil {
		return rag.Answer{}, err
	}

	if stream != nil {
		if err := stream(ctx, reply); err != nil {
			return rag.Answer{}, err
		}
	}

	r.recordAssistantTurn(ctx, sess, reply)
	return rag.Answer{Text: reply}, nil
}

func (r *Router) execute(ctx context.Context, sess *session.Session, decision Decision) (string, error) {
	switch decision.Target {
	case TargetAssistantMeta:
		return r.handleMeta(sess, decision.Residual)

	case TargetNamedAssistant:
		d, ok := r.registry.Lookup(decision.Assistant)
		if !ok {
			return "", fmt.Errorf("%w: %q", assistant.ErrUnknownAssistant, decision.Assistant)
		}
		return d.Handle(ctx, decision.Residual, r.assistantContext(sess))

	case TargetActiveAssistant:
		d, ok := r.registry.Lookup(decision.Assistant)
		if !ok {
			// Active assistant vanished from the registry; reset and
			// treat the message as plain text next time.
			sess.ActiveAssistant = ""
			return "", fmt.Errorf("%w: %q", assistant.ErrUnknownAssistant, decision.Assistant)
		}
		return d.Handle(ctx, decision.Residual, r.assistantContext(sess))

	case TargetShared:
		return r.handleShared(ctx, decision)

	default:
		return "", fmt.Errorf("unhandled routing target %d", decision.Target)
	}
}

// handleMeta implements the /assistant control command.
func (r *Router) handleMeta(sess *session.Session, arg string) (string, error) {
	name, _ := splitToken(arg)
	switch {
	case name == "":
		return assistantUsage, nil

	case strings.EqualFold(name, "list"):
		descriptors := r.registry.List()
		if len(descriptors) == 0 {
			return "No assistants are currently registered.", nil
		}
		var b strings.Builder
		b.WriteString("**Available Assistants:**\n")
		for _, d := range descriptors {
			fmt.Fprintf(&b, "\n- `/%s`: **%s** - %s", d.Command, d.Name, d.Description)
		}
		return b.String(), nil

	default:
		d, err := r.registry.LookupName(name)
		if err != nil {
			return "", err // ErrUnknownAssistant; active assistant unchanged
		}
		sess.ActiveAssistant = d.Command
		return fmt.Sprintf("Switched to **%s**. %s", d.Name, d.Description), nil
	}
}

func (r *Router) handleShared(ctx context.Context, decision Decision) (string, error) {
	switch decision.Shared {
	case SharedSearch:
		query := decision.Residual
		if query == "" {
			return searchUsage, nil
		}
		results, err := r.search.Search(ctx, query)
		if errors.Is(err, websearch.ErrNotConfigured) {
			return searchNotConfigured, nil
		}
		if err != nil {
			return "", err
		}
		return websearch.Format(query, results), nil

	case SharedChart:
		size, ok := chart.ParseRequest(decision.Residual)
		if !ok {
			return "", fmt.Errorf("not a chart request: %q", decision.Residual)
		}
		return chart.Handle(size), nil

	default:
		return "", fmt.Errorf("unhandled shared command %d", decision.Shared)
	}
}

func (r *Router) assistantContext(sess *session.Session) assistant.Context {
	return assistant.Context{
		SessionID:    sess.ID,
		UserID:       sess.UserID,
		DocumentName: sess.DocumentName,
	}
}

func (r *Router) recordUserTurn(ctx context.Context, sess *session.Session, text string) {
	sess.Memory.Append(memory.Turn{Role: memory.RoleUser, Text: text})
	sess.Memory.EvictIfOverBudget()
	if r.store == nil {
		return
	}
	if err := r.store.AppendTurn(ctx, sess.ID, memory.Turn{Role: memory.RoleUser, Text: text}); err != nil {
		r.logger.Warn("persisting user turn", "session_id", sess.ID, "error", err)
	}
}

func (r *Router) recordAssistantTurn(ctx context.Context, sess *session.Session, text string) {
	sess.Memory.Append(memory.Turn{Role: memory.RoleAssistant, Text: text})
	sess.Memory.EvictIfOverBudget()
	if r.store == nil {
		return
	}
	if err := r.store.AppendTurn(ctx, sess.ID, memory.Turn{Role: memory.RoleAssistant, Text: text}); err != nil {
		r.logger.Warn("persisting assistant turn", "session_id", sess.ID, "error", err)
	}
}
