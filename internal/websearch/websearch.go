// Package websearch delegates the shared /search command to a SearXNG
// instance. Search is optional: an unconfigured client reports
// ErrNotConfigured, which callers surface as a usage hint rather than a
// failed turn.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oselz/docent/internal/log"
)

var (
	// ErrNotConfigured indicates no SearXNG base URL is set.
	ErrNotConfigured = errors.New("web search is not configured")

	// ErrSearchFailed indicates the SearXNG request or response failed.
	ErrSearchFailed = errors.New("web search failed")
)

const (
	// DefaultMaxResults is how many results a search returns at most.
	DefaultMaxResults = 5

	requestTimeout  = 15 * time.Second
	maxResponseSize = 4 << 20 // 4MB
)

// Result is one web search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Client queries a SearXNG instance's JSON API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxResults int
	logger     log.Logger
}

// New creates a search client. An empty baseURL produces a client whose
// Search always returns ErrNotConfigured.
func New(baseURL string, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		maxResults: DefaultMaxResults,
		logger:     logger,
	}
}

// Configured reports whether a SearXNG endpoint is set.
func (c *Client) Configured() bool { return c.baseURL != "" }

// searxngResponse mirrors the fields we use from SearXNG's JSON output.
type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search queries SearXNG and returns up to DefaultMaxResults hits.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrSearchFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrSearchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrSearchFailed, err)
	}

	var parsed searxngResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrSearchFailed, err)
	}

	results := make([]Result, 0, c.maxResults)
	for _, r := range parsed.Results {
		if len(results) == c.maxResults {
			break
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}

	c.logger.Debug("web search completed", "query", query, "results", len(results))
	return results, nil
}

// Format renders results as a numbered markdown list for the chat reply.
func Format(query string, results []Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No web results found for `%s`.", query)
	}

	var b strings.Builder
	b.WriteString("**Web search results:**\n")
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = "Untitled result"
		}
		b.WriteString("\n")
		if r.URL != "" {
			fmt.Fprintf(&b, "%d. **[%s](%s)**\n%s\n", i+1, title, r.URL, r.Snippet)
		} else {
			fmt.Fprintf(&b, "%d. **%s**\n%s\n", i+1, title, r.Snippet)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
