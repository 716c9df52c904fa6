package rag

import (
	"path/filepath"
	"strings"
)

// StructuralUnit is one extracted piece of a document: a paragraph, a page,
// or a section body. Ordering defines document reading order.
type StructuralUnit struct {
	Text       string
	Page       int    // 1-based page number, 0 if the format has no pages
	Section    string // nearest heading, empty when none was found
	OrderIndex int
}

// Document is a parsed source file, immutable once chunked.
type Document struct {
	DocID      string
	Title      string
	SourcePath string
	Units      []StructuralUnit
}

// Chunk is the atomic unit of retrieval: a bounded excerpt with provenance.
type Chunk struct {
	ChunkID    string `json:"chunk_id"`
	DocID      string `json:"doc_id"`
	Text       string `json:"text"`
	Title      string `json:"title"`
	Section    string `json:"section"`
	Page       int    `json:"page"`
	SourcePath string `json:"source_path"`
	ChunkIndex int    `json:"chunk_index"`
	TokenCount int    `json:"token_count"`
}

// Candidate is a retrieved chunk with its relevance score. The score is
// cosine similarity after retrieval and the cross-encoder score after
// re-ranking.
type Candidate struct {
	ChunkID string
	Chunk   Chunk
	Score   float64
}

// Citation points a statement in the answer back to a source chunk.
type Citation struct {
	DocID   string  `json:"doc_id"`
	Title   string  `json:"title"`
	Section string  `json:"section"`
	Page    int     `json:"page"`
	Score   float64 `json:"score"`
	Excerpt string  `json:"excerpt"`
}

// Usage carries per-query timing and token accounting.
type Usage struct {
	TotalLatencyMS   int64  `json:"total_latency_ms"`
	RetrievalMS      int64  `json:"retrieval_time_ms"`
	RerankMS         int64  `json:"rerank_time_ms"`
	LLMMS            int64  `json:"llm_time_ms"`
	TokensPrompt     int64  `json:"tokens_prompt"`
	TokensCompletion int64  `json:"tokens_completion"`
	Model            string `json:"model"`
	NumRetrieved     int    `json:"num_retrieved"`
	NumReranked      int    `json:"num_reranked"`
}

// QueryRequest is one question against the corpus.
type QueryRequest struct {
	Query    string            `json:"query"`
	TopK     int               `json:"top_k,omitempty"`
	Filters  map[string]string `json:"filters,omitempty"`
	Identity string            `json:"-"` // rate-limit key, e.g. client IP
}

// QueryResult is the answer with its citations and usage stats.
type QueryResult struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Usage     Usage      `json:"usage"`
	Status    string     `json:"status"`
}

// IngestFailure records a document that was skipped during ingestion.
type IngestFailure struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// IngestSummary reports the outcome of one ingestion batch.
type IngestSummary struct {
	FilesProcessed    int             `json:"files_processed"`
	ChunksCreated     int             `json:"chunks_created"`
	DocumentsUpserted int             `json:"documents_upserted"`
	ElapsedSeconds    float64         `json:"elapsed_seconds"`
	Status            string          `json:"status"`
	Failures          []IngestFailure `json:"failures,omitempty"`
}

// DocIDFromPath derives a stable document id from the source filename.
// The same path always yields the same id, so re-ingestion replaces the
// document's previous chunks instead of duplicating them.
func DocIDFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var b strings.Builder
	for _, r := range strings.ToLower(stem) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	id := strings.Trim(b.String(), "_")
	if id == "" {
		return "document"
	}
	return id
}
