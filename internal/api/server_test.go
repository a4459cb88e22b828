package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oselz/docent/internal/assistant"
	"github.com/oselz/docent/internal/document"
	"github.com/oselz/docent/internal/index"
	"github.com/oselz/docent/internal/log"
	"github.com/oselz/docent/internal/provider"
	"github.com/oselz/docent/internal/rag"
	"github.com/oselz/docent/internal/router"
	"github.com/oselz/docent/internal/session"
)

// fakePipeline records the last handled message and returns a canned answer.
type fakePipeline struct {
	answer rag.Answer
	err    error
	chunks []string

	lastMessage string
	lastSession *session.Session
}

func (p *fakePipeline) Handle(ctx context.Context, sess *session.Session, message string, stream provider.StreamFunc) (rag.Answer, error) {
	p.lastMessage = message
	p.lastSession = sess
	if p.err != nil {
		return rag.Answer{}, p.err
	}
	if stream != nil {
		for _, chunk := range p.chunks {
			if err := stream(ctx, chunk); err != nil {
				return rag.Answer{}, err
			}
		}
	}
	return p.answer, nil
}

// fakeEmbedder returns unit basis vectors so indexes build deterministically.
type fakeEmbedder struct {
	dim int
	err error
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, e.dim)
		v[i%e.dim] = 1
		vectors[i] = v
	}
	return vectors, nil
}

func (e *fakeEmbedder) Dimension() int { return e.dim }

type testHarness struct {
	server   *httptest.Server
	pipeline *fakePipeline
	manager  *session.Manager
	store    *session.MemoryStore
	embedder *fakeEmbedder
}

func healthAssistant(t *testing.T) assistant.Descriptor {
	t.Helper()
	return assistant.Descriptor{
		Name:        "Healthcare Assistant",
		Command:     "health",
		Description: "Helps patients schedule appointments and retrieve lab results",
		Handle: func(_ context.Context, text string, _ assistant.Context) (string, error) {
			return "health: " + text, nil
		},
	}
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	pipeline := &fakePipeline{answer: rag.Answer{Text: "hello"}}
	manager := session.NewManager(30)
	store := session.NewMemoryStore()
	embedder := &fakeEmbedder{dim: 4}

	splitter, err := document.NewSplitter(50, 10)
	require.NoError(t, err)
	ingestor := document.NewIngestor(splitter, embedder, log.NewNop())

	dispatcher := router.NewDispatcher(log.NewNop())
	t.Cleanup(dispatcher.Close)

	registry := assistant.NewRegistry()
	require.NoError(t, registry.Register(healthAssistant(t)))

	srv, err := NewServer(Config{
		Logger:     log.NewNop(),
		Registry:   registry,
		Pipeline:   pipeline,
		Dispatcher: dispatcher,
		Sessions:   manager,
		Store:      store,
		Ingestor:   ingestor,
		BuildIndex: func(_ context.Context, _ uuid.UUID, entries []index.Entry) (index.Index, error) {
			return index.NewMemory(entries, embedder.dim)
		},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testHarness{
		server:   ts,
		pipeline: pipeline,
		manager:  manager,
		store:    store,
		embedder: embedder,
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReady_NoProbe(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.server.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReady_ProbeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	probe := func(context.Context) error { return errors.New("connection refused") }

	readiness(probe, log.NewNop())(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewServer_RequiresCollaborators(t *testing.T) {
	_, err := NewServer(Config{})
	require.Error(t, err)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.server.URL + "/api/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
