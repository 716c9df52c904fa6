package guard

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"kbrag/internal/config"
	"kbrag/internal/rag"
)

// Prompt injection shapes screened before a query reaches the model. The
// match itself is never echoed back to the caller.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(previous|above|all)\s+instructions`),
	regexp.MustCompile(`(?i)you\s+are\s+(now|a)\s+\w+`),
	regexp.MustCompile(`(?i)system\s*:\s*`),
	regexp.MustCompile(`<\|im_start\|>`),
	regexp.MustCompile(`<\|endoftext\|>`),
}

// Gate admits or rejects queries before any provider is called. Checks run
// in a fixed order: rate limit, sanitization, length, injection screen,
// blocked terms. The first failing check wins and nothing after it runs.
type Gate struct {
	maxQueryLength int
	blockedTerms   []string
	limiter        *RateLimiter
}

func NewGate(cfg config.Config) *Gate {
	return &Gate{
		maxQueryLength: cfg.MaxQueryLength,
		blockedTerms:   cfg.BlockedTerms,
		limiter:        NewRateLimiter(cfg.RateLimitPerMinute),
	}
}

// Admit runs the full check sequence for one query. On success it returns
// the sanitized query text, which is what every later stage must use.
func (g *Gate) Admit(identity, query string) (string, error) {
	if err := g.limiter.Allow(identity); err != nil {
		return "", err
	}

	clean := sanitize(query)
	if clean == "" {
		return "", &rag.ValidationError{Msg: "query must not be empty"}
	}
	if len(clean) > g.maxQueryLength {
		return "", &rag.ValidationError{
			Msg: fmt.Sprintf("query exceeds maximum length of %d characters", g.maxQueryLength),
		}
	}

	for _, p := range injectionPatterns {
		if p.MatchString(clean) {
			return "", &rag.PolicyError{Reason: "query rejected by content policy"}
		}
	}

	lower := strings.ToLower(clean)
	for _, term := range g.blockedTerms {
		if strings.Contains(lower, term) {
			return "", &rag.PolicyError{Reason: "query rejected by content policy"}
		}
	}

	return clean, nil
}

// sanitize collapses whitespace and drops control characters. Queries are
// single-line by contract, so newlines become spaces too.
func sanitize(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for _, r := range query {
		switch {
		case unicode.IsControl(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
