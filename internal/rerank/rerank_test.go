package rerank

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kbrag/internal/rag"
)

func cand(id, text string, score float64) rag.Candidate {
	return rag.Candidate{ChunkID: id, Chunk: rag.Chunk{ChunkID: id, Text: text}, Score: score}
}

func TestLocal_RanksLexicalOverlapFirst(t *testing.T) {
	candidates := []rag.Candidate{
		cand("a", "the premium is due monthly", 0.9),
		cand("b", "collision deductible is five hundred dollars", 0.8),
		cand("c", "contact your agent for questions", 0.7),
	}
	got, err := NewLocal().Rerank(context.Background(), "what is the collision deductible", candidates, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ChunkID)
}

func TestLocal_KeepKAtOrAboveLenReturnsAll(t *testing.T) {
	candidates := []rag.Candidate{
		cand("a", "alpha text", 0.9),
		cand("b", "beta text", 0.8),
	}
	got, err := NewLocal().Rerank(context.Background(), "query", candidates, 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestLocal_TieBreakPreservesInputOrder(t *testing.T) {
	// No query token matches either chunk, so both score zero and the
	// similarity order must survive.
	candidates := []rag.Candidate{
		cand("first", "alpha", 0.9),
		cand("second", "beta", 0.8),
	}
	got, err := NewLocal().Rerank(context.Background(), "unrelated", candidates, 2)
	require.NoError(t, err)
	assert.Equal(t, "first", got[0].ChunkID)
	assert.Equal(t, "second", got[1].ChunkID)
}

func TestLocal_OutputIsPermutationOfInput(t *testing.T) {
	candidates := []rag.Candidate{
		cand("a", "collision deductible amount", 0.9),
		cand("b", "fire damage coverage limits", 0.8),
		cand("c", "deductible applies per claim", 0.7),
	}
	got, err := NewLocal().Rerank(context.Background(), "deductible", candidates, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	seen := map[string]bool{}
	for _, c := range got {
		seen[c.ChunkID] = true
	}
	assert.Len(t, seen, 3)
}

func TestLocal_EmptyCandidates(t *testing.T) {
	got, err := NewLocal().Rerank(context.Background(), "query", nil, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCohere_RerankMapsIndexesBack(t *testing.T) {
	var captured cohereRerankRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/rerank", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.Write([]byte(`{"results":[
			{"index":2,"relevance_score":0.97},
			{"index":0,"relevance_score":0.41}
		]}`))
	}))
	defer srv.Close()

	c := NewCohere(CohereConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "rerank-v3.5"})
	candidates := []rag.Candidate{
		cand("a", "first chunk", 0.9),
		cand("b", "second chunk", 0.8),
		cand("c", "third chunk", 0.7),
	}
	got, err := c.Rerank(context.Background(), "the question", candidates, 2)
	require.NoError(t, err)

	assert.Equal(t, "rerank-v3.5", captured.Model)
	assert.Equal(t, 2, captured.TopN)
	assert.Equal(t, []string{"first chunk", "second chunk", "third chunk"}, captured.Documents)

	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ChunkID)
	assert.InDelta(t, 0.97, got[0].Score, 1e-9)
	assert.Equal(t, "a", got[1].ChunkID)
}

func TestCohere_ServerErrorWrapsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewCohere(CohereConfig{APIKey: "k", BaseURL: srv.URL, Model: "rerank-v3.5"})
	_, err := c.Rerank(context.Background(), "q", []rag.Candidate{cand("a", "text", 0.5)}, 1)
	var perr *rag.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "rerank", perr.Provider)
}

func TestCohere_BadIndexRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"index":9,"relevance_score":0.5}]}`))
	}))
	defer srv.Close()

	c := NewCohere(CohereConfig{APIKey: "k", BaseURL: srv.URL, Model: "rerank-v3.5"})
	_, err := c.Rerank(context.Background(), "q", []rag.Candidate{cand("a", "text", 0.5)}, 1)
	require.Error(t, err)
}
