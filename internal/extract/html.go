package extract

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"kbrag/internal/rag"
)

// HTMLExtractor handles HTML files. h1-h6 tags form the section breadcrumb;
// block-level content elements become units.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(r io.Reader, filename string) ([]rag.StructuralUnit, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

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
	var currentText strings.Builder
	flush := func() {
		out.add(currentText.String(), 0, section())
		currentText.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				flush()
				for len(crumbs) > 0 && crumbs[len(crumbs)-1].level >= level {
					crumbs = crumbs[:len(crumbs)-1]
				}
				crumbs = append(crumbs, crumb{title: textContent(n), level: level})
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "p", "li", "td", "blockquote", "pre":
				t := textContent(n)
				if t != "" {
					if currentText.Len() > 0 {
						currentText.WriteString("\n\n")
					}
					currentText.WriteString(t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	flush()

	return out.units, nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extractNode func(*html.Node)
	extractNode = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractNode(c)
		}
	}
	extractNode(n)
	return strings.TrimSpace(buf.String())
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
