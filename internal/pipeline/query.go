package pipeline

import (
	"context"
	"time"

	"kbrag/internal/prompt"
	"kbrag/internal/rag"
)

const maxTopK = 50

// Query answers one question against the corpus. Stage order is fixed:
// admission, query embedding, retrieval, re-ranking, prompt assembly,
// generation, citation binding. Embedding, retrieval and generation
// failures are fatal; a re-ranking failure degrades to similarity order.
// Zero retrieved candidates is not an error: the model is asked anyway,
// with an empty context, so it can say the corpus has nothing.
func (p *Pipeline) Query(ctx context.Context, req rag.QueryRequest) (*rag.QueryResult, error) {
	start := time.Now()

	query, err := p.gate.Admit(req.Identity, req.Query)
	if err != nil {
		return nil, err
	}

	topK := req.TopK
	switch {
	case topK <= 0:
		topK = p.cfg.TopK
	case topK > maxTopK:
		return nil, &rag.ValidationError{Msg: "top_k too large"}
	}

	vectors, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	retrieveStart := time.Now()
	candidates, err := p.store.Search(ctx, vectors[0], topK, req.Filters)
	if err != nil {
		return nil, err
	}
	retrievalMS := time.Since(retrieveStart).Milliseconds()

	rerankStart := time.Now()
	ranked, err := p.reranker.Rerank(ctx, query, candidates, p.cfg.KeepK)
	if err != nil {
		// Degraded, not dead: fall back to similarity order.
		p.log.Warn("rerank failed, using similarity order",
			"reranker", p.reranker.Name(), "error", err)
		ranked = candidates
		if len(ranked) > p.cfg.KeepK {
			ranked = ranked[:p.cfg.KeepK]
		}
	}
	rerankMS := time.Since(rerankStart).Milliseconds()

	pr := prompt.Assemble(query, ranked, p.cfg.MaxContextChars)

	llmStart := time.Now()
	gen, err := p.generator.Generate(ctx, pr.System, pr.User)
	if err != nil {
		return nil, err
	}
	llmMS := time.Since(llmStart).Milliseconds()

	citations := prompt.BindCitations(gen.Answer, pr.Sources)
	totalMS := time.Since(start).Milliseconds()
	p.stats.Record(totalMS)

	p.log.Info("query answered",
		"retrieved", len(candidates),
		"reranked", len(ranked),
		"packed", len(pr.Sources),
		"citations", len(citations),
		"total_ms", totalMS)

	return &rag.QueryResult{
		Answer:    gen.Answer,
		Citations: citations,
		Status:    "success",
		Usage: rag.Usage{
			TotalLatencyMS:   totalMS,
			RetrievalMS:      retrievalMS,
			RerankMS:         rerankMS,
			LLMMS:            llmMS,
			TokensPrompt:     gen.TokensPrompt,
			TokensCompletion: gen.TokensCompletion,
			Model:            gen.Model,
			NumRetrieved:     len(candidates),
			NumReranked:      len(ranked),
		},
	}, nil
}
