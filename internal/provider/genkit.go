package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/oselz/docent/internal/config"
	"github.com/oselz/docent/internal/log"
)

// Client wraps a Genkit instance and implements both Generator and
// Embedder for the configured provider.
type Client struct {
	g         *genkit.Genkit
	embedder  ai.Embedder
	modelName string
	dimension int
	embmodel  string
	logger    log.Logger
}

var (
	_ Generator = (*Client)(nil)
	_ Embedder  = (*Client)(nil)
)

// NewClient initializes Genkit with the plugin matching cfg.Provider and
// resolves the embedder registered by that plugin.
//
// Each provider registers embedders differently:
//   - gemini: GoogleAIEmbedder(g, modelName)
//   - ollama: registered explicitly here, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func NewClient(ctx context.Context, cfg *config.Config, logger log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	var g *genkit.Genkit
	var embedder ai.Embedder

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		embedder = ollama.Embedder(g, cfg.OllamaHost)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		embedder = genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // "gemini"
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}

	return &Client{
		g:         g,
		embedder:  embedder,
		modelName: cfg.FullModelName(),
		dimension: cfg.EmbedderDimension,
		embmodel:  cfg.EmbedderModel,
		logger:    logger,
	}, nil
}

// Generate produces a model response for req. When stream is non-nil it
// receives response text chunk by chunk as the model emits it.
func (c *Client) Generate(ctx context.Context, req GenerateRequest, stream StreamFunc) (string, error) {
	messages := toGenkitMessages(req.History)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(req.Prompt)))

	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithMessages(messages...),
	}
	if req.System != "" {
		opts = append(opts, ai.WithSystem(req.System))
	}
	if stream != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return stream(ctx, chunk.Text())
		}))
	}

	response, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return response.Text(), nil
}

// Embed converts texts into vectors, one per input, all of length
// Dimension().
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = ai.DocumentFromText(text, nil)
	}

	resp, err := c.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			ErrEmbedding, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrEmbedding, i)
		}
		vectors[i] = emb.Embedding
	}
	return vectors, nil
}

// Dimension returns the configured embedding vector length.
func (c *Client) Dimension() int { return c.dimension }

// ModelName returns the embedder model identifier.
func (c *Client) ModelName() string { return c.embmodel }

// toGenkitMessages converts conversation history into Genkit messages.
// Unknown roles are treated as user messages.
func toGenkitMessages(history []Message) []*ai.Message {
	msgs := make([]*ai.Message, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case RoleModel:
			msgs = append(msgs, ai.NewModelMessage(ai.NewTextPart(m.Text)))
		default:
			msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(m.Text)))
		}
	}
	return msgs
}
