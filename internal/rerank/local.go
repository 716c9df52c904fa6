package rerank

import (
	"context"
	"math"
	"sort"
	"strings"

	"kbrag/internal/rag"
)

// Local is a lexical cross-scorer. It measures token-set overlap between the
// query and each chunk with the Ochiai coefficient, which rewards shared
// vocabulary without letting long chunks win on length alone. No network,
// fully deterministic.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func (l *Local) Name() string { return "local" }

func (l *Local) Rerank(ctx context.Context, query string, candidates []rag.Candidate, keepK int) ([]rag.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	queryTokens := tokenSet(query)
	out := make([]rag.Candidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].Score = ochiai(queryTokens, tokenSet(out[i].Chunk.Text))
	}

	// Stable sort keeps the incoming similarity order as the tie-break.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if keepK < len(out) {
		out = out[:keepK]
	}
	return out, nil
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?()[]{}\"'")
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}

func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			shared++
		}
	}
	return float64(shared) / math.Sqrt(float64(len(a))*float64(len(b)))
}
