package prompt

import (
	"regexp"
	"strconv"
	"unicode/utf8"

	"kbrag/internal/rag"
)

var markerPattern = regexp.MustCompile(`\[doc_(\d+)\]`)

const excerptLimit = 200

// BindCitations resolves the [doc_N] markers the model actually wrote in
// its answer against the packed sources. Citations come back distinct, in
// order of first appearance; markers pointing outside the packed source
// list are ignored. An answer without markers yields no citations, even
// when sources were provided.
func BindCitations(answer string, sources []rag.Candidate) []rag.Citation {
	matches := markerPattern.FindAllStringSubmatch(answer, -1)
	if len(matches) == 0 {
		return []rag.Citation{}
	}

	seen := make(map[int]bool)
	citations := make([]rag.Citation, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(sources) {
			continue
		}
		if seen[n] {
			continue
		}
		seen[n] = true

		src := sources[n-1]
		citations = append(citations, rag.Citation{
			DocID:   src.Chunk.DocID,
			Title:   src.Chunk.Title,
			Section: src.Chunk.Section,
			Page:    src.Chunk.Page,
			Score:   src.Score,
			Excerpt: excerpt(src.Chunk.Text),
		})
	}
	return citations
}

func excerpt(text string) string {
	if len(text) <= excerptLimit {
		return text
	}
	cut := excerptLimit
	// Never split a multi-byte rune.
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
