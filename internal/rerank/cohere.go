package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kbrag/internal/rag"
)

const defaultCohereURL = "https://api.cohere.com"

type CohereConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Cohere re-ranks candidates through the Cohere v2 rerank endpoint.
type Cohere struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewCohere(cfg CohereConfig) *Cohere {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultCohereURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Cohere{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Cohere) Name() string { return "cohere" }

type cohereRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type cohereRerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (c *Cohere) Rerank(ctx context.Context, query string, candidates []rag.Candidate, keepK int) ([]rag.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	topN := min(keepK, len(candidates))

	docs := make([]string, len(candidates))
	for i, cand := range candidates {
		docs[i] = cand.Chunk.Text
	}

	payload, err := json.Marshal(cohereRerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: docs,
		TopN:      topN,
	})
	if err != nil {
		return nil, &rag.ProviderError{Provider: "rerank", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, &rag.ProviderError{Provider: "rerank", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &rag.ProviderError{Provider: "rerank", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &rag.ProviderError{Provider: "rerank", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &rag.ProviderError{
			Provider: "rerank",
			Err:      fmt.Errorf("cohere rerank: status %d: %s", resp.StatusCode, truncate(body, 256)),
		}
	}

	var parsed cohereRerankResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &rag.ProviderError{Provider: "rerank", Err: fmt.Errorf("decode rerank response: %w", err)}
	}

	out := make([]rag.Candidate, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(candidates) {
			return nil, &rag.ProviderError{
				Provider: "rerank",
				Err:      fmt.Errorf("rerank result index %d out of range", r.Index),
			}
		}
		cand := candidates[r.Index]
		cand.Score = r.RelevanceScore
		out = append(out, cand)
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
