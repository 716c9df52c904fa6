package extract

import (
	"io"
	"strings"

	"kbrag/internal/rag"
)

// sectionRule matches the heavy box-drawing separators some exported text
// files use between sections.
const sectionRule = "═══"

// TextExtractor handles plain text files. Form feeds (and separator rules)
// split the file into pages; heading-looking lines open a new section.
type TextExtractor struct{}

func (e *TextExtractor) Extract(r io.Reader, filename string) ([]rag.StructuralUnit, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	content := string(data)

	var pages []string
	switch {
	case strings.Contains(content, "\f"):
		pages = strings.Split(content, "\f")
	case strings.Contains(content, sectionRule):
		pages = splitOnRule(content)
	default:
		pages = []string{content}
	}

	var out unitList
	pageNum := 0
	for _, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		pageNum++

		section := ""
		var para strings.Builder
		flush := func() {
			out.add(para.String(), pageNum, section)
			para.Reset()
		}

		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case line == "":
				flush()
			case isHeadingLine(line):
				flush()
				section = trimHeading(line)
			default:
				if para.Len() > 0 {
					para.WriteString("\n")
				}
				para.WriteString(line)
			}
		}
		flush()
	}

	return out.units, nil
}

// splitOnRule splits on any run of box-drawing characters.
func splitOnRule(content string) []string {
	var parts []string
	for _, p := range strings.Split(content, sectionRule) {
		p = strings.Trim(p, "═\n \t")
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
