package pipeline

import (
	"log/slog"
	"time"

	"kbrag/internal/config"
	"kbrag/internal/embed"
	"kbrag/internal/guard"
	"kbrag/internal/llm"
	"kbrag/internal/rerank"
	"kbrag/internal/vectorstore"
)

// Pipeline wires the full retrieval-augmented answering flow: guarded query
// admission, embedding, vector retrieval, re-ranking, prompt assembly,
// generation and citation binding, plus document ingestion into the store.
type Pipeline struct {
	cfg       config.Config
	embedder  embed.Provider
	store     vectorstore.Store
	reranker  rerank.Reranker
	generator llm.Generator
	gate      *guard.Gate
	log       *slog.Logger
	stats     *QueryStats
}

func New(cfg config.Config, embedder embed.Provider, store vectorstore.Store, reranker rerank.Reranker, generator llm.Generator, log *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		embedder:  embedder,
		store:     store,
		reranker:  reranker,
		generator: generator,
		gate:      guard.NewGate(cfg),
		log:       log,
		stats:     NewQueryStats(time.Hour),
	}
}

// Stats reports rolling query latency aggregates.
func (p *Pipeline) Stats() StatsSnapshot {
	return p.stats.Snapshot()
}

// Store exposes the underlying vector store for health reporting.
func (p *Pipeline) Store() vectorstore.Store {
	return p.store
}
