package extract

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"kbrag/internal/rag"
)

// MarkdownExtractor handles Markdown files using goldmark. Heading levels
// form a breadcrumb that becomes the section of the units below them.
type MarkdownExtractor struct{}

func (e *MarkdownExtractor) Extract(r io.Reader, filename string) ([]rag.StructuralUnit, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	type crumb struct {
		title string
		level int
	}
	var crumbs []crumb
	section := func() string {
		parts := make([]string, len(crumbs))
		for i, c := range crumbs {
			parts[i] = c.title
		}
		return strings.Join(parts, " / ")
	}

	var out unitList
	var currentText bytes.Buffer
	flush := func() {
		out.add(currentText.String(), 0, section())
		currentText.Reset()
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			flush()
			for len(crumbs) > 0 && crumbs[len(crumbs)-1].level >= node.Level {
				crumbs = crumbs[:len(crumbs)-1]
			}
			crumbs = append(crumbs, crumb{title: string(node.Text(src)), level: node.Level})
		default:
			t := mdText(n, src)
			if t != "" {
				if currentText.Len() > 0 {
					currentText.WriteString("\n\n")
				}
				currentText.WriteString(t)
			}
		}
	}
	flush()

	return out.units, nil
}

// mdText gets the text content of a goldmark AST node. Blocks with raw
// source lines use those directly; container blocks (lists, quotes) recurse.
func mdText(n ast.Node, src []byte) string {
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		var buf bytes.Buffer
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}

	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := mdText(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
