package rag

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedFormat is returned for file types no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ValidationError rejects a malformed request (empty query, unknown filter
// key). Maps to a 400 at the HTTP edge.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// PolicyError rejects a query on policy grounds: rate limit, injection
// pattern, blocked term. Reason is deliberately generic so the caller cannot
// probe which rule fired.
type PolicyError struct {
	Reason     string
	RetryAfter time.Duration // non-zero only for rate limiting
}

func (e *PolicyError) Error() string { return e.Reason }

// ProviderError wraps a failure of an external backend (embedding, re-rank,
// generation, vector store).
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ExtractionError marks a document that yielded no extractable text. During
// ingestion it skips that document and is reported in the summary.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
