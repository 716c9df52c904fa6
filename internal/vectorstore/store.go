package vectorstore

import (
	"context"
	"fmt"

	"kbrag/internal/config"
	"kbrag/internal/rag"
)

// Store is the vector index contract. Implementations filter candidates by
// exact metadata match BEFORE similarity ranking, so the filter narrows the
// candidate set rather than re-scoring it.
type Store interface {
	// Upsert writes chunks and their vectors. vectors[i] belongs to chunks[i].
	Upsert(ctx context.Context, chunks []rag.Chunk, vectors [][]float32) error

	// Search returns up to topK candidates ordered by descending similarity.
	// An empty filter matches everything. Fewer than topK matches is not an
	// error; zero matches returns an empty slice.
	Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]rag.Candidate, error)

	// DeleteByDocID removes every chunk belonging to a document. Deleting a
	// document that has no chunks is a no-op.
	DeleteByDocID(ctx context.Context, docID string) error

	// DeleteFromIndex removes a document's chunks whose chunk index is at or
	// beyond fromIndex. Used after re-ingestion to trim leftovers of a
	// previously longer version; trimming past the end is a no-op.
	DeleteFromIndex(ctx context.Context, docID string, fromIndex int) error

	// Count reports the number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// AllowedFilterKeys are the metadata fields a caller may filter on. The
// "product" alias maps onto the document title.
var AllowedFilterKeys = map[string]string{
	"doc_id":      "doc_id",
	"title":       "title",
	"product":     "title",
	"section":     "section",
	"page":        "page",
	"source_path": "source_path",
}

// NormalizeFilter validates filter keys and resolves aliases to the stored
// metadata field names. Unknown keys are rejected rather than ignored, so a
// typo cannot silently widen a search.
func NormalizeFilter(filter map[string]string) (map[string]string, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(filter))
	for k, v := range filter {
		field, ok := AllowedFilterKeys[k]
		if !ok {
			return nil, &rag.ValidationError{Msg: fmt.Sprintf("unknown filter key: %q", k)}
		}
		out[field] = v
	}
	return out, nil
}

// New builds the configured store backend.
func New(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return NewMemory(), nil
	case "qdrant":
		q := NewQdrant(QdrantConfig{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			Dim:        cfg.EmbeddingDim,
		})
		if err := q.EnsureCollection(ctx); err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.StoreBackend)
	}
}
