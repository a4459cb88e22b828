// Package provider defines the AI model boundary: text generation and
// embedding behind small interfaces so the rest of the pipeline never
// touches a concrete SDK.
//
// The production implementation (genkit.go) wraps Firebase Genkit and
// supports the gemini, ollama and openai providers. Tests substitute
// deterministic fakes.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrGeneration indicates the model failed to produce a response.
	ErrGeneration = errors.New("model generation failed")

	// ErrEmbedding indicates the embedder failed to produce vectors.
	ErrEmbedding = errors.New("embedding failed")
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is a single conversation message passed to the generator.
type Message struct {
	Role Role
	Text string
}

// GenerateRequest carries everything the generator needs for one turn:
// an optional system prompt, prior conversation history in order, and
// the current user prompt.
type GenerateRequest struct {
	System  string
	History []Message
	Prompt  string
}

// StreamFunc receives response text incrementally as the model produces
// it. Returning an error aborts generation and propagates the error to
// the Generate caller.
type StreamFunc func(ctx context.Context, chunk string) error

// Generator produces model responses. If stream is non-nil it is called
// for each chunk before the full response text is returned; if nil the
// response is generated without streaming.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest, stream StreamFunc) (string, error)
}

// Embedder converts texts into fixed-dimension vectors. All vectors
// returned by one Embedder have length Dimension(), and the i-th vector
// corresponds to the i-th input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelName() string
}
