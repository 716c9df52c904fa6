package embed

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
	"kbrag/internal/rag"
)

// Native output widths of the OpenAI embedding models we accept.
var openAIDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAI has a cap of 2048 inputs per request; we stay well below it.
const embedBatchSize = 100

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Dim     int
	Timeout time.Duration
}

// OpenAI embeds text through the OpenAI embeddings API, batched for
// throughput and throttled client-side.
type OpenAI struct {
	client  openai.Client
	model   string
	dim     int
	timeout time.Duration
	limiter *rate.Limiter
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	native, ok := openAIDimensions[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("unknown openai embedding model: %q", cfg.Model)
	}
	if native != cfg.Dim {
		return nil, fmt.Errorf("embedding model %s produces %d-dimensional vectors, pipeline is configured for %d",
			cfg.Model, native, cfg.Dim)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAI{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		dim:     cfg.Dim,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Dimension() int { return o.dim }

func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		if err := o.embedBatch(ctx, texts[start:end], out[start:end]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (o *OpenAI) embedBatch(ctx context.Context, batch []string, out [][]float32) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Embeddings.New(callCtx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
	})
	if err != nil {
		return &rag.ProviderError{Provider: "embedding", Err: err}
	}
	if len(resp.Data) != len(batch) {
		return &rag.ProviderError{
			Provider: "embedding",
			Err:      fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Data)),
		}
	}
	for _, d := range resp.Data {
		i := int(d.Index)
		if i < 0 || i >= len(out) {
			return &rag.ProviderError{Provider: "embedding", Err: fmt.Errorf("embedding index %d out of range", i)}
		}
		if len(d.Embedding) != o.dim {
			return &rag.ProviderError{
				Provider: "embedding",
				Err:      fmt.Errorf("provider returned %d-dimensional vector, expected %d", len(d.Embedding), o.dim),
			}
		}
		vec := make([]float32, o.dim)
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return nil
}
