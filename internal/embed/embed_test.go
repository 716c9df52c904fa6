package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"kbrag/internal/config"
)

func TestLocal_Deterministic(t *testing.T) {
	l := NewLocal(64)
	a, err := l.Embed(context.Background(), []string{"the deductible is 500 dollars"})
	require.NoError(t, err)
	b, err := l.Embed(context.Background(), []string{"the deductible is 500 dollars"})
	require.NoError(t, err)
	assert.Equal(t, a[0], b[0])
}

func TestLocal_UnitLength(t *testing.T) {
	l := NewLocal(128)
	vecs, err := l.Embed(context.Background(), []string{"collision coverage applies after the deductible"})
	require.NoError(t, err)

	var sum float64
	for _, v := range vecs[0] {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestLocal_DimensionAndOrder(t *testing.T) {
	l := NewLocal(32)
	assert.Equal(t, 32, l.Dimension())

	texts := []string{"alpha", "beta", "gamma"}
	vecs, err := l.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 32)
	}
	// Distinct tokens land on distinct vectors.
	assert.NotEqual(t, vecs[0], vecs[1])
}

func TestLocal_EmptyText(t *testing.T) {
	l := NewLocal(16)
	vecs, err := l.Embed(context.Background(), []string{""})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	for _, v := range vecs[0] {
		assert.Equal(t, float32(0), v)
	}
}

func TestLocal_SimilarTextsCloser(t *testing.T) {
	l := NewLocal(256)
	vecs, err := l.Embed(context.Background(), []string{
		"auto insurance deductible for collision claims",
		"deductible for auto collision insurance claims",
		"chocolate cake recipe with vanilla frosting",
	})
	require.NoError(t, err)

	assert.Greater(t, cos(vecs[0], vecs[1]), cos(vecs[0], vecs[2]))
}

func cos(a, b []float32) float64 {
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

func TestNewOpenAI_RejectsDimensionMismatch(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{
		APIKey: "k",
		Model:  "text-embedding-3-small",
		Dim:    3072,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1536")
}

func TestNewOpenAI_RejectsUnknownModel(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{APIKey: "k", Model: "mystery-model", Dim: 768})
	require.Error(t, err)
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := config.Load()
	cfg.EmbedProvider = "sbert"
	_, err := New(cfg)
	require.Error(t, err)
}

func TestNew_Local(t *testing.T) {
	cfg := config.Load()
	cfg.EmbedProvider = "local"
	cfg.EmbeddingDim = 384
	p, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name())
	assert.Equal(t, 384, p.Dimension())
}
