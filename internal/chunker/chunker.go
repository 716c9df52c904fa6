package chunker

import (
	"fmt"
	"strings"

	"kbrag/internal/rag"
)

// Config controls chunking behavior. Sizes are in tokens.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    800,
		ChunkOverlap: 150,
	}
}

// Validate rejects degenerate configurations. A chunk size at or below the
// overlap would re-emit the same tokens forever.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkSize <= c.ChunkOverlap {
		return fmt.Errorf("chunk size (%d) must exceed overlap (%d)", c.ChunkSize, c.ChunkOverlap)
	}
	return nil
}

// Split turns a document's structural units into overlapping token-bounded
// chunks. A page or section change always forces a chunk break, so no chunk
// ever spans two pages or two sections; overlap is seeded only between
// chunks cut from the same page+section run. Chunk indexes are contiguous
// from 0 in emission order.
func Split(doc *rag.Document, cfg Config) ([]rag.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var chunks []rag.Chunk
	emit := func(tokens []string, page int, section string) {
		index := len(chunks)
		text := strings.Join(tokens, " ")
		chunks = append(chunks, rag.Chunk{
			ChunkID:    fmt.Sprintf("%s:%d", doc.DocID, index),
			DocID:      doc.DocID,
			Text:       text,
			Title:      doc.Title,
			Section:    section,
			Page:       page,
			SourcePath: doc.SourcePath,
			ChunkIndex: index,
			TokenCount: len(tokens),
		})
	}

	for _, run := range groupUnits(doc.Units) {
		tokens := Tokenize(run.text)
		if len(tokens) == 0 {
			continue
		}
		start := 0
		for {
			end := min(start+cfg.ChunkSize, len(tokens))
			emit(tokens[start:end], run.page, run.section)
			if end == len(tokens) {
				break
			}
			start = end - cfg.ChunkOverlap
		}
	}

	return chunks, nil
}

// unitRun is a maximal sequence of adjacent units sharing page and section.
type unitRun struct {
	text    string
	page    int
	section string
}

func groupUnits(units []rag.StructuralUnit) []unitRun {
	var runs []unitRun
	var buf strings.Builder
	var page int
	var section string

	flush := func() {
		if buf.Len() > 0 {
			runs = append(runs, unitRun{text: buf.String(), page: page, section: section})
			buf.Reset()
		}
	}

	for i, u := range units {
		if i > 0 && (u.Page != page || u.Section != section) {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(u.Text)
		page = u.Page
		section = u.Section
	}
	flush()

	return runs
}
