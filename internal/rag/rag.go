// Package rag orchestrates retrieval-augmented answers: embed the
// question, pull the nearest document chunks from the session's index,
// fold in conversation memory, and stream the model's grounded response.
// Sessions without an ingested document fall back to memory-only chat.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/oselz/docent/internal/index"
	"github.com/oselz/docent/internal/log"
	"github.com/oselz/docent/internal/memory"
	"github.com/oselz/docent/internal/provider"
	"github.com/oselz/docent/internal/session"
)

// ErrIndexMismatch indicates the query embedding's dimension differs
// from the session index's dimension (embedder changed mid-session).
var ErrIndexMismatch = errors.New("query embedding does not match index dimension")

const groundedSystemPrompt = "You are a helpful document assistant. Answer the question " +
	"using the provided document excerpts. If the excerpts do not contain the answer, " +
	"say so instead of guessing."

const ungroundedSystemPrompt = "You are a helpful assistant. Answer conversationally; " +
	"no document has been uploaded in this session."

// Answer is the outcome of one completed turn.
type Answer struct {
	Text string

	// Grounded reports whether document chunks informed the answer.
	Grounded bool

	// Sources are the retrieved chunks, most similar first. Empty when
	// not grounded.
	Sources []index.Hit
}

// Engine runs the query side of the pipeline.
type Engine struct {
	embedder  provider.Embedder
	generator provider.Generator
	limiter   *rate.Limiter
	store     session.Store
	topK      int
	logger    log.Logger
}

// Config assembles an Engine.
type Config struct {
	Embedder  provider.Embedder
	Generator provider.Generator
	Store     session.Store

	// TopK is how many chunks to retrieve per query.
	TopK int

	// Limiter throttles generation calls; nil uses a default of
	// 10 req/s with a burst of 30.
	Limiter *rate.Limiter

	Logger log.Logger
}

// NewEngine validates cfg and creates an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if cfg.TopK < 1 {
		return nil, fmt.Errorf("top-k must be positive, got %d", cfg.TopK)
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{
		embedder:  cfg.Embedder,
		generator: cfg.Generator,
		limiter:   limiter,
		store:     cfg.Store,
		topK:      cfg.TopK,
		logger:    logger,
	}, nil
}

// Query answers text for sess. With an ingested document the answer is
// grounded in retrieved chunks; otherwise it is memory-only chat. On
// success both turns are committed to conversation memory (evicting over
// budget) and persisted best-effort; on failure — including context
// cancellation mid-stream — only the user turn is recorded.
func (e *Engine) Query(ctx context.Context, sess *session.Session, text string, stream provider.StreamFunc) (Answer, error) {
	history := sess.Memory.Snapshot()

	var answer Answer
	var hits []index.Hit

	if sess.Index != nil {
		vectors, err := e.embedder.Embed(ctx, []string{text})
		if err != nil {
			e.recordFailedTurn(ctx, sess, text)
			return Answer{}, err
		}
		if len(vectors) != 1 || len(vectors[0]) != sess.Index.Dimension() {
			e.recordFailedTurn(ctx, sess, text)
			return Answer{}, fmt.Errorf("%w: got %d, index wants %d",
				ErrIndexMismatch, vectorDim(vectors), sess.Index.Dimension())
		}

		hits, err = sess.Index.Search(ctx, vectors[0], e.topK)
		if err != nil {
			e.recordFailedTurn(ctx, sess, text)
			return Answer{}, fmt.Errorf("searching index: %w", err)
		}
		answer.Grounded = true
		answer.Sources = hits
	}

	req := provider.GenerateRequest{
		System:  systemPrompt(answer.Grounded),
		History: toProviderHistory(history),
		Prompt:  buildPrompt(sess.DocumentName, hits, text),
	}

	if err := e.limiter.Wait(ctx); err != nil {
		e.recordFailedTurn(ctx, sess, text)
		return Answer{}, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	responseText, err := e.generator.Generate(ctx, req, stream)
	if err != nil {
		e.recordFailedTurn(ctx, sess, text)
		return Answer{}, err
	}
	answer.Text = responseText

	e.commitTurns(ctx, sess, text, responseText)
	return answer, nil
}

// commitTurns appends the completed exchange to conversation memory and
// persists it. Persistence is best-effort: a store failure is logged and
// never fails the turn.
func (e *Engine) commitTurns(ctx context.Context, sess *session.Session, userText, assistantText string) {
	sess.Memory.Append(memory.Turn{Role: memory.RoleUser, Text: userText})
	sess.Memory.Append(memory.Turn{Role: memory.RoleAssistant, Text: assistantText})
	sess.Memory.EvictIfOverBudget()

	if e.store == nil {
		return
	}
	if err := e.store.AppendTurn(ctx, sess.ID, memory.Turn{Role: memory.RoleUser, Text: userText}); err != nil {
		e.logger.Warn("persisting user turn", "session_id", sess.ID, "error", err)
	}
	if err := e.store.AppendTurn(ctx, sess.ID, memory.Turn{Role: memory.RoleAssistant, Text: assistantText}); err != nil {
		e.logger.Warn("persisting assistant turn", "session_id", sess.ID, "error", err)
	}
}

// recordFailedTurn records the user's message for a turn that produced
// no answer, so later turns still see it in context.
func (e *Engine) recordFailedTurn(ctx context.Context, sess *session.Session, userText string) {
	sess.Memory.Append(memory.Turn{Role: memory.RoleUser, Text: userText})
	sess.Memory.EvictIfOverBudget()

	if e.store == nil {
		return
	}
	if err := e.store.AppendTurn(ctx, sess.ID, memory.Turn{Role: memory.RoleUser, Text: userText}); err != nil {
		e.logger.Warn("persisting user turn", "session_id", sess.ID, "error", err)
	}
}

func systemPrompt(grounded bool) string {
	if grounded {
		return groundedSystemPrompt
	}
	return ungroundedSystemPrompt
}

// buildPrompt assembles the retrieved chunks and the question into the
// user prompt. Without chunks the question passes through unchanged.
func buildPrompt(documentName string, hits []index.Hit, question string) string {
	if len(hits) == 0 {
		return question
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Excerpts from %q:\n\n", documentName)
	for i, hit := range hits {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, hit.Entry.Text)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func toProviderHistory(turns []memory.Turn) []provider.Message {
	history := make([]provider.Message, len(turns))
	for i, t := range turns {
		role := provider.RoleUser
		if t.Role == memory.RoleAssistant {
			role = provider.RoleModel
		}
		history[i] = provider.Message{Role: role, Text: t.Text}
	}
	return history
}

func vectorDim(vectors [][]float32) int {
	if len(vectors) == 0 {
		return 0
	}
	return len(vectors[0])
}
