package embed

import (
	"context"
	"fmt"

	"kbrag/internal/config"
)

// Provider produces fixed-dimension vectors for text. Implementations must
// return one vector per input text, in input order, all of Dimension() width.
type Provider interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// New builds the configured embedding provider. A provider whose native
// dimensionality differs from the pipeline dimension is rejected here, at
// configuration time, never silently truncated or padded.
func New(cfg config.Config) (Provider, error) {
	switch cfg.EmbedProvider {
	case "local":
		return NewLocal(cfg.EmbeddingDim), nil
	case "openai":
		return NewOpenAI(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIEmbedModel,
			Dim:     cfg.EmbeddingDim,
			Timeout: cfg.EmbedTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown embed provider: %q", cfg.EmbedProvider)
	}
}
