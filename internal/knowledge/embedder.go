package knowledge

import (
	"context"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// EmbedderConfig configures the OpenAI-compatible embedding backend.
// Any server speaking the OpenAI embeddings API works here, including
// local TEI deployments.
type EmbedderConfig struct {
	// BaseURL is the embeddings API endpoint, e.g. https://api.openai.com/v1.
	BaseURL string

	// Model is the embedding model, e.g. text-embedding-3-small.
	Model string

	// APIKey authenticates against the endpoint. Optional for local servers.
	APIKey string
}

// OpenAIEmbedder is an Embedder backed by langchaingo's OpenAI client.
type OpenAIEmbedder struct {
	embedder *lcembeddings.EmbedderImpl
}

// NewOpenAIEmbedder builds an embedder for the configured endpoint.
func NewOpenAIEmbedder(cfg EmbedderConfig) (*OpenAIEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedder base URL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedder model is required")
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token even for local servers.
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := lcembeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return &OpenAIEmbedder{embedder: embedder}, nil
}

// EmbedQuery embeds a single query string.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vec, nil
}

// EmbedDocuments embeds a batch of passages for indexing.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}
	return vecs, nil
}
