package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"kbrag/internal/rag"
)

// Point IDs must be UUIDs or unsigned integers in qdrant, so chunk IDs are
// mapped through a deterministic SHA1 UUID. Re-upserting the same chunk
// always hits the same point.
var pointNamespace = uuid.MustParse("8f1c9f60-2b35-4dc2-9c1e-5a7d6de0c0a4")

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dim        int
}

// Qdrant talks to a qdrant instance over its REST API.
type Qdrant struct {
	baseURL    string
	apiKey     string
	collection string
	dim        int
	httpClient *http.Client
}

func NewQdrant(cfg QdrantConfig) *Qdrant {
	return &Qdrant{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dim:        cfg.Dim,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// EnsureCollection creates the collection with cosine distance if it does
// not exist yet. Called once at startup.
func (q *Qdrant) EnsureCollection(ctx context.Context) error {
	status, _, err := q.do(ctx, http.MethodGet, "/collections/"+q.collection, nil)
	if err != nil {
		return &rag.ProviderError{Provider: "vectorstore", Err: err}
	}
	if status == http.StatusOK {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     q.dim,
			"distance": "Cosine",
		},
	}
	status, respBody, err := q.do(ctx, http.MethodPut, "/collections/"+q.collection, body)
	if err != nil {
		return &rag.ProviderError{Provider: "vectorstore", Err: err}
	}
	if status != http.StatusOK {
		return &rag.ProviderError{
			Provider: "vectorstore",
			Err:      fmt.Errorf("create collection %s: status %d: %s", q.collection, status, truncateBody(respBody)),
		}
	}
	return nil
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (q *Qdrant) Upsert(ctx context.Context, chunks []rag.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]qdrantPoint, len(chunks))
	for i, c := range chunks {
		points[i] = qdrantPoint{
			ID:     uuid.NewSHA1(pointNamespace, []byte(c.ChunkID)).String(),
			Vector: vectors[i],
			Payload: map[string]any{
				"chunk_id":    c.ChunkID,
				"doc_id":      c.DocID,
				"text":        c.Text,
				"title":       c.Title,
				"section":     c.Section,
				"page":        c.Page,
				"source_path": c.SourcePath,
				"chunk_index": c.ChunkIndex,
			},
		}
	}

	status, respBody, err := q.do(ctx, http.MethodPut,
		"/collections/"+q.collection+"/points?wait=true",
		map[string]any{"points": points})
	if err != nil {
		return &rag.ProviderError{Provider: "vectorstore", Err: err}
	}
	if status != http.StatusOK {
		return &rag.ProviderError{
			Provider: "vectorstore",
			Err:      fmt.Errorf("upsert %d points: status %d: %s", len(points), status, truncateBody(respBody)),
		}
	}
	return nil
}

type qdrantSearchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

func (q *Qdrant) Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]rag.Candidate, error) {
	norm, err := NormalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if cond := qdrantFilter(norm); cond != nil {
		body["filter"] = cond
	}

	status, respBody, err := q.do(ctx, http.MethodPost, "/collections/"+q.collection+"/points/search", body)
	if err != nil {
		return nil, &rag.ProviderError{Provider: "vectorstore", Err: err}
	}
	if status != http.StatusOK {
		return nil, &rag.ProviderError{
			Provider: "vectorstore",
			Err:      fmt.Errorf("search: status %d: %s", status, truncateBody(respBody)),
		}
	}

	var parsed qdrantSearchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &rag.ProviderError{Provider: "vectorstore", Err: fmt.Errorf("decode search response: %w", err)}
	}

	candidates := make([]rag.Candidate, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		c := chunkFromPayload(r.Payload)
		candidates = append(candidates, rag.Candidate{
			ChunkID: c.ChunkID,
			Chunk:   c,
			Score:   r.Score,
		})
	}
	return candidates, nil
}

func (q *Qdrant) DeleteByDocID(ctx context.Context, docID string) error {
	body := map[string]any{
		"filter": qdrantFilter(map[string]string{"doc_id": docID}),
	}
	status, respBody, err := q.do(ctx, http.MethodPost,
		"/collections/"+q.collection+"/points/delete?wait=true", body)
	if err != nil {
		return &rag.ProviderError{Provider: "vectorstore", Err: err}
	}
	if status != http.StatusOK {
		return &rag.ProviderError{
			Provider: "vectorstore",
			Err:      fmt.Errorf("delete doc %s: status %d: %s", docID, status, truncateBody(respBody)),
		}
	}
	return nil
}

func (q *Qdrant) DeleteFromIndex(ctx context.Context, docID string, fromIndex int) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "doc_id", "match": map[string]any{"value": docID}},
				{"key": "chunk_index", "range": map[string]any{"gte": fromIndex}},
			},
		},
	}
	status, respBody, err := q.do(ctx, http.MethodPost,
		"/collections/"+q.collection+"/points/delete?wait=true", body)
	if err != nil {
		return &rag.ProviderError{Provider: "vectorstore", Err: err}
	}
	if status != http.StatusOK {
		return &rag.ProviderError{
			Provider: "vectorstore",
			Err:      fmt.Errorf("delete doc %s from index %d: status %d: %s", docID, fromIndex, status, truncateBody(respBody)),
		}
	}
	return nil
}

type qdrantCountResponse struct {
	Result struct {
		Count int `json:"count"`
	} `json:"result"`
}

func (q *Qdrant) Count(ctx context.Context) (int, error) {
	status, respBody, err := q.do(ctx, http.MethodPost,
		"/collections/"+q.collection+"/points/count",
		map[string]any{"exact": true})
	if err != nil {
		return 0, &rag.ProviderError{Provider: "vectorstore", Err: err}
	}
	if status != http.StatusOK {
		return 0, &rag.ProviderError{
			Provider: "vectorstore",
			Err:      fmt.Errorf("count: status %d: %s", status, truncateBody(respBody)),
		}
	}
	var parsed qdrantCountResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return 0, &rag.ProviderError{Provider: "vectorstore", Err: fmt.Errorf("decode count response: %w", err)}
	}
	return parsed.Result.Count, nil
}

func qdrantFilter(norm map[string]string) map[string]any {
	if len(norm) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(norm))
	for field, value := range norm {
		// The page payload field holds an integer; a string match value
		// would never hit it.
		var match any = value
		if field == "page" {
			if n, err := strconv.Atoi(value); err == nil {
				match = n
			}
		}
		must = append(must, map[string]any{
			"key":   field,
			"match": map[string]any{"value": match},
		})
	}
	return map[string]any{"must": must}
}

func chunkFromPayload(p map[string]any) rag.Chunk {
	return rag.Chunk{
		ChunkID:    payloadString(p, "chunk_id"),
		DocID:      payloadString(p, "doc_id"),
		Text:       payloadString(p, "text"),
		Title:      payloadString(p, "title"),
		Section:    payloadString(p, "section"),
		Page:       payloadInt(p, "page"),
		SourcePath: payloadString(p, "source_path"),
		ChunkIndex: payloadInt(p, "chunk_index"),
	}
}

func payloadString(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return s
}

func payloadInt(p map[string]any, key string) int {
	f, _ := p[key].(float64)
	return int(f)
}

func (q *Qdrant) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func truncateBody(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
