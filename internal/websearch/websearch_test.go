package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_NotConfigured(t *testing.T) {
	c := New("", nil)
	assert.False(t, c.Configured())

	_, err := c.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSearch_ParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "go concurrency", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [
			{"title": "Go Blog", "url": "https://go.dev/blog", "content": "Concurrency patterns"},
			{"title": "Effective Go", "url": "https://go.dev/doc/effective_go", "content": "Goroutines"}
		]}`))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	results, err := c.Search(context.Background(), "go concurrency")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Go Blog", results[0].Title)
	assert.Equal(t, "https://go.dev/blog", results[0].URL)
	assert.Equal(t, "Concurrency patterns", results[0].Snippet)
}

func TestSearch_CapsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [
			{"title": "1"}, {"title": "2"}, {"title": "3"}, {"title": "4"},
			{"title": "5"}, {"title": "6"}, {"title": "7"}
		]}`))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	results, err := c.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, results, DefaultMaxResults)
}

func TestSearch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := New(server.URL, nil)
	_, err := c.Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestSearch_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	_, err := c.Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestFormat(t *testing.T) {
	out := Format("query", []Result{
		{Title: "Go Blog", URL: "https://go.dev/blog", Snippet: "patterns"},
		{Title: "", URL: "", Snippet: "no link"},
	})
	assert.Contains(t, out, "1. **[Go Blog](https://go.dev/blog)**")
	assert.Contains(t, out, "2. **Untitled result**")
	assert.Contains(t, out, "no link")
}

func TestFormat_Empty(t *testing.T) {
	out := Format("rare topic", nil)
	assert.Contains(t, out, "No web results found")
	assert.Contains(t, out, "rare topic")
}
