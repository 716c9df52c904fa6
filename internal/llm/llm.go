package llm

import (
	"context"

	"kbrag/internal/config"
)

// Result is one completed generation.
type Result struct {
	Answer           string
	Model            string
	TokensPrompt     int64
	TokensCompletion int64
}

// Generator produces an answer from an assembled system/user prompt pair.
type Generator interface {
	Generate(ctx context.Context, system, user string) (*Result, error)
}

// New builds the chat generator from config.
func New(cfg config.Config) Generator {
	return NewOpenAI(OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
	})
}
