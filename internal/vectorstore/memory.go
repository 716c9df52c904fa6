package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"kbrag/internal/rag"
)

// Memory is a brute-force in-process store. It keeps the full chunk payload
// next to the vector, which makes it the fixture for pipeline tests and a
// zero-dependency backend for development.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryItem // keyed by chunk ID
}

type memoryItem struct {
	chunk  rag.Chunk
	vector []float32
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryItem)}
}

func (m *Memory) Upsert(ctx context.Context, chunks []rag.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range chunks {
		m.items[c.ChunkID] = memoryItem{chunk: c, vector: vectors[i]}
	}
	return nil
}

func (m *Memory) Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]rag.Candidate, error) {
	norm, err := NormalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := make([]rag.Candidate, 0, topK)
	for _, it := range m.items {
		if !matchesFilter(it.chunk, norm) {
			continue
		}
		candidates = append(candidates, rag.Candidate{
			ChunkID: it.chunk.ChunkID,
			Chunk:   it.chunk,
			Score:   cosine(vector, it.vector),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ChunkID < candidates[j].ChunkID
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (m *Memory) DeleteByDocID(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, it := range m.items {
		if it.chunk.DocID == docID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *Memory) DeleteFromIndex(ctx context.Context, docID string, fromIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, it := range m.items {
		if it.chunk.DocID == docID && it.chunk.ChunkIndex >= fromIndex {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

func matchesFilter(c rag.Chunk, filter map[string]string) bool {
	for field, want := range filter {
		var got string
		switch field {
		case "doc_id":
			got = c.DocID
		case "title":
			got = c.Title
		case "section":
			got = c.Section
		case "page":
			got = fmt.Sprintf("%d", c.Page)
		case "source_path":
			got = c.SourcePath
		}
		if got != want {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
