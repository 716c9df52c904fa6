package prompt

import (
	"fmt"
	"strings"

	"kbrag/internal/rag"
)

const systemPrompt = `You are a knowledge-base assistant. Answer questions using ONLY the provided sources.

Rules:
- Base every statement on the sources. Do not use outside knowledge.
- Cite each fact with the marker of the source it came from, e.g. [doc_1].
- If the sources do not contain the answer, say that the knowledge base has no information on the question. Do not guess.
- Keep answers concise and factual.`

const emptyContextNote = `No sources matched this question. State that the knowledge base has no information on it and do not answer from outside knowledge.`

// Prompt is an assembled model request. Sources holds, in marker order, the
// candidates that were actually packed: Sources[0] is [doc_1].
type Prompt struct {
	System  string
	User    string
	Sources []rag.Candidate
}

// Assemble packs candidates into a context block in rank order. Each chunk
// goes in whole or not at all; packing stops at the first chunk that would
// push the block past maxContextChars, so a later smaller chunk never jumps
// an earlier larger one. Zero packed sources still yields a usable prompt
// that tells the model to admit it has nothing.
func Assemble(query string, candidates []rag.Candidate, maxContextChars int) Prompt {
	var blocks []string
	var packed []rag.Candidate
	used := 0

	for _, c := range candidates {
		block := renderSource(len(packed)+1, c.Chunk)
		cost := len(block)
		if len(blocks) > 0 {
			cost += 2 // joining newlines
		}
		if used+cost > maxContextChars {
			break
		}
		used += cost
		blocks = append(blocks, block)
		packed = append(packed, c)
	}

	var user strings.Builder
	if len(blocks) == 0 {
		user.WriteString(emptyContextNote)
	} else {
		user.WriteString("Sources:\n\n")
		user.WriteString(strings.Join(blocks, "\n\n"))
	}
	user.WriteString("\n\nQuestion: ")
	user.WriteString(query)

	return Prompt{
		System:  systemPrompt,
		User:    user.String(),
		Sources: packed,
	}
}

func renderSource(n int, c rag.Chunk) string {
	var meta []string
	if c.Title != "" {
		meta = append(meta, "Document: "+c.Title)
	}
	if c.Section != "" {
		meta = append(meta, "Section: "+c.Section)
	}
	if c.Page > 0 {
		meta = append(meta, fmt.Sprintf("Page: %d", c.Page))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[doc_%d]", n)
	if len(meta) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(meta, ", "))
		b.WriteString(")")
	}
	b.WriteString("\n")
	b.WriteString(c.Text)
	return b.String()
}
