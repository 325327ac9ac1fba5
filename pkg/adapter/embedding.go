package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// EmbeddingProvider selects one of the supported embedding backends
type EmbeddingProvider string

const (
	ProviderGemini EmbeddingProvider = "gemini"
)

// Embedder converts text to a vector with a fixed provider and model. The
// provider and model are bound once at construction; call sites never dispatch
// on configuration strings.
type Embedder interface {
	Provider() string
	Model() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderConfig selects and configures an embedding backend
type EmbedderConfig struct {
	Provider EmbeddingProvider
	Project  string
	Location string
	Model    string
}

// NewEmbedder constructs the embedder for the configured provider
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", ProviderGemini:
		var opts []GeminiOption
		if cfg.Model != "" {
			opts = append(opts, WithEmbeddingModel(cfg.Model))
		}
		return NewGemini(ctx, cfg.Project, cfg.Location, opts...)

	default:
		return nil, goerr.New("unsupported embedding provider",
			goerr.V("provider", cfg.Provider))
	}
}
