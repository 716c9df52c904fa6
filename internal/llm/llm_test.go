package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kbrag/internal/rag"
)

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"model": "gpt-4o-mini",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "Collision is covered [doc_1]."}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 120, "completion_tokens": 9, "total_tokens": 129}
}`

func TestGenerate_ReturnsAnswerAndUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	g := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o-mini", MaxTokens: 100})
	res, err := g.Generate(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "Collision is covered [doc_1].", res.Answer)
	assert.Equal(t, "gpt-4o-mini", res.Model)
	assert.Equal(t, int64(120), res.TokensPrompt)
	assert.Equal(t, int64(9), res.TokensCompletion)
}

func TestGenerate_RetriesTransientFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	g := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o-mini", MaxTokens: 100})
	res, err := g.Generate(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "Collision is covered [doc_1].", res.Answer)
}

func TestGenerate_BadRequestFailsFast(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":{"message":"invalid model"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	g := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL, Model: "nope", MaxTokens: 100})
	_, err := g.Generate(context.Background(), "system", "user")
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var perr *rag.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "llm", perr.Provider)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&retryableError{err: errors.New("boom")}))
	assert.False(t, isRetryable(errors.New("boom")))
}

func TestBackoff_GrowsAndCaps(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := backoff(attempt)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 45*time.Second)
	}
	assert.GreaterOrEqual(t, backoff(3), 8*time.Second)
}
