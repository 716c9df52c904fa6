package rerank

import (
	"context"
	"fmt"

	"kbrag/internal/config"
	"kbrag/internal/rag"
)

// Reranker re-scores retrieval candidates against the query text and keeps
// the best keepK. Implementations must not drop candidates for any other
// reason: with keepK >= len(candidates) every candidate comes back, re-ordered.
type Reranker interface {
	Name() string
	Rerank(ctx context.Context, query string, candidates []rag.Candidate, keepK int) ([]rag.Candidate, error)
}

// New builds the configured reranker.
func New(cfg config.Config) (Reranker, error) {
	switch cfg.Reranker {
	case "local":
		return NewLocal(), nil
	case "cohere":
		return NewCohere(CohereConfig{
			APIKey:  cfg.CohereAPIKey,
			Model:   cfg.CohereModel,
			Timeout: cfg.RerankTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown reranker: %q", cfg.Reranker)
	}
}
