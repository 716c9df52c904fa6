package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kbrag/internal/rag"
)

func seedMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	chunks := []rag.Chunk{
		{ChunkID: "auto:0", DocID: "auto", Title: "Auto Policy", Section: "Coverage", Page: 1, Text: "collision coverage"},
		{ChunkID: "auto:1", DocID: "auto", Title: "Auto Policy", Section: "Exclusions", Page: 2, Text: "racing excluded"},
		{ChunkID: "home:0", DocID: "home", Title: "Home Policy", Section: "Coverage", Page: 1, Text: "fire coverage"},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	require.NoError(t, m.Upsert(context.Background(), chunks, vectors))
	return m
}

func TestMemory_SearchOrdersByScore(t *testing.T) {
	m := seedMemory(t)
	got, err := m.Search(context.Background(), []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "auto:0", got[0].ChunkID)
	assert.Equal(t, "auto:1", got[1].ChunkID)
	assert.Equal(t, "home:0", got[2].ChunkID)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestMemory_TopKTruncates(t *testing.T) {
	m := seedMemory(t)
	got, err := m.Search(context.Background(), []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMemory_FilterNarrowsBeforeRanking(t *testing.T) {
	m := seedMemory(t)
	// The best global match is auto:0, but the filter excludes that document.
	got, err := m.Search(context.Background(), []float32{1, 0, 0}, 10, map[string]string{"doc_id": "home"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "home:0", got[0].ChunkID)
}

func TestMemory_ProductFilterAliasesTitle(t *testing.T) {
	m := seedMemory(t)
	got, err := m.Search(context.Background(), []float32{1, 0, 0}, 10, map[string]string{"product": "Home Policy"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "home:0", got[0].ChunkID)
}

func TestMemory_UnknownFilterKeyRejected(t *testing.T) {
	m := seedMemory(t)
	_, err := m.Search(context.Background(), []float32{1, 0, 0}, 10, map[string]string{"author": "x"})
	require.Error(t, err)
	var verr *rag.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestMemory_ZeroMatchesIsEmptyNotError(t *testing.T) {
	m := seedMemory(t)
	got, err := m.Search(context.Background(), []float32{1, 0, 0}, 10, map[string]string{"doc_id": "absent"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemory_DeleteByDocID(t *testing.T) {
	m := seedMemory(t)
	require.NoError(t, m.DeleteByDocID(context.Background(), "auto"))

	n, err := m.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Deleting an absent document is a no-op.
	require.NoError(t, m.DeleteByDocID(context.Background(), "auto"))
	n, err = m.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemory_DeleteFromIndexTrimsOnlyTail(t *testing.T) {
	m := NewMemory()
	chunks := []rag.Chunk{
		{ChunkID: "auto:0", DocID: "auto", ChunkIndex: 0, Text: "first"},
		{ChunkID: "auto:1", DocID: "auto", ChunkIndex: 1, Text: "second"},
		{ChunkID: "auto:2", DocID: "auto", ChunkIndex: 2, Text: "third"},
		{ChunkID: "home:0", DocID: "home", ChunkIndex: 0, Text: "other doc"},
	}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}}
	require.NoError(t, m.Upsert(context.Background(), chunks, vectors))

	require.NoError(t, m.DeleteFromIndex(context.Background(), "auto", 1))

	n, err := m.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := m.Search(context.Background(), []float32{1, 0, 0}, 10, map[string]string{"doc_id": "auto"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "auto:0", got[0].ChunkID)

	// Trimming past the end is a no-op.
	require.NoError(t, m.DeleteFromIndex(context.Background(), "auto", 5))
	n, err = m.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMemory_UpsertReplacesSameChunkID(t *testing.T) {
	m := seedMemory(t)
	updated := []rag.Chunk{{ChunkID: "auto:0", DocID: "auto", Title: "Auto Policy", Text: "rewritten"}}
	require.NoError(t, m.Upsert(context.Background(), updated, [][]float32{{0, 0, 1}}))

	n, err := m.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := m.Search(context.Background(), []float32{0, 0, 1}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", got[0].Chunk.Text)
}

func TestMemory_UpsertLengthMismatch(t *testing.T) {
	m := NewMemory()
	err := m.Upsert(context.Background(), []rag.Chunk{{ChunkID: "a:0"}}, nil)
	require.Error(t, err)
}
