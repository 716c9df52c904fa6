package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Local is a deterministic feature-hashing embedder. It needs no model
// files and no network, which makes it the default for development and the
// fixture for tests. Same text always yields the same unit-length vector.
type Local struct {
	dim int
}

func NewLocal(dim int) *Local {
	return &Local{dim: dim}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Dimension() int { return l.dim }

func (l *Local) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = l.embedOne(text)
	}
	return out, nil
}

func (l *Local) embedOne(text string) []float32 {
	vec := make([]float32, l.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(l.dim))
		// High bit picks the sign so collisions partially cancel.
		if sum&(1<<63) != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}
	normalize(vec)
	return vec
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
