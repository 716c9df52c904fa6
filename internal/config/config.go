package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port    string
	DataDir string

	// Embedding gateway
	EmbedProvider    string // "local" or "openai"
	EmbeddingDim     int
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIEmbedModel string

	// Generation
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int

	// Re-ranking
	Reranker     string // "local" or "cohere"
	CohereAPIKey string
	CohereModel  string

	// Vector store
	StoreBackend     string // "qdrant" or "memory"
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// Chunking
	ChunkSize    int // target chunk size in tokens
	ChunkOverlap int // overlap between consecutive chunks in tokens

	// Retrieval
	TopK  int
	KeepK int

	// Prompt budget
	MaxContextChars int

	// Guardrails
	MaxQueryLength     int
	RateLimitPerMinute int
	BlockedTerms       []string

	// Per-call timeouts for external providers
	EmbedTimeout  time.Duration
	RerankTimeout time.Duration
	LLMTimeout    time.Duration
}

func Load() Config {
	cfg := Config{
		Port:    envOr("PORT", "8080"),
		DataDir: envOr("DATA_DIR", "/data/docs"),

		EmbedProvider:    envOr("EMBED_PROVIDER", "local"),
		EmbeddingDim:     envInt("EMBEDDING_DIM", 256),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		OpenAIEmbedModel: envOr("OPENAI_EMBED_MODEL", "text-embedding-3-small"),

		LLMModel:       envOr("LLM_MODEL", "gpt-4o-mini"),
		LLMTemperature: envFloat("LLM_TEMPERATURE", 0.1),
		LLMMaxTokens:   envInt("LLM_MAX_TOKENS", 1500),

		Reranker:     envOr("RERANKER", "local"),
		CohereAPIKey: os.Getenv("COHERE_API_KEY"),
		CohereModel:  envOr("COHERE_RERANK_MODEL", "rerank-v3.5"),

		StoreBackend:     envOr("STORE_BACKEND", "qdrant"),
		QdrantURL:        envOr("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantCollection: envOr("QDRANT_COLLECTION", "knowledge_chunks"),

		ChunkSize:    envInt("CHUNK_SIZE", 800),
		ChunkOverlap: envInt("CHUNK_OVERLAP", 150),

		TopK:  envInt("TOP_K", 6),
		KeepK: envInt("RERANK_KEEP_K", 3),

		MaxContextChars: envInt("MAX_CONTEXT_CHARS", 12000),

		MaxQueryLength:     envInt("MAX_QUERY_LENGTH", 500),
		RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 20),
		BlockedTerms:       splitTerms(envOr("BLOCKED_TERMS", "secret;credential;password;api_key;hack;inject")),

		EmbedTimeout:  envDuration("EMBED_TIMEOUT", 30*time.Second),
		RerankTimeout: envDuration("RERANK_TIMEOUT", 15*time.Second),
		LLMTimeout:    envDuration("LLM_TIMEOUT", 120*time.Second),
	}
	return cfg
}

// Validate rejects configurations the pipeline cannot run with. Everything
// here is fatal at startup, never at request time.
func (c Config) Validate() error {
	switch c.EmbedProvider {
	case "local", "openai":
	default:
		return fmt.Errorf("EMBED_PROVIDER must be \"local\" or \"openai\", got %q", c.EmbedProvider)
	}
	if c.EmbedProvider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when EMBED_PROVIDER=openai")
	}
	switch c.Reranker {
	case "local", "cohere":
	default:
		return fmt.Errorf("RERANKER must be \"local\" or \"cohere\", got %q", c.Reranker)
	}
	if c.Reranker == "cohere" && c.CohereAPIKey == "" {
		return fmt.Errorf("COHERE_API_KEY is required when RERANKER=cohere")
	}
	switch c.StoreBackend {
	case "qdrant", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be \"qdrant\" or \"memory\", got %q", c.StoreBackend)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("CHUNK_OVERLAP must not be negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkSize <= c.ChunkOverlap {
		return fmt.Errorf("CHUNK_SIZE (%d) must exceed CHUNK_OVERLAP (%d)", c.ChunkSize, c.ChunkOverlap)
	}
	if c.TopK < 1 {
		return fmt.Errorf("TOP_K must be at least 1, got %d", c.TopK)
	}
	if c.KeepK < 1 {
		return fmt.Errorf("RERANK_KEEP_K must be at least 1, got %d", c.KeepK)
	}
	if c.MaxContextChars <= 0 {
		return fmt.Errorf("MAX_CONTEXT_CHARS must be positive, got %d", c.MaxContextChars)
	}
	if c.MaxQueryLength <= 0 {
		return fmt.Errorf("MAX_QUERY_LENGTH must be positive, got %d", c.MaxQueryLength)
	}
	if c.RateLimitPerMinute < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be at least 1, got %d", c.RateLimitPerMinute)
	}
	return nil
}

func splitTerms(s string) []string {
	var terms []string
	for _, t := range strings.Split(s, ";") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
