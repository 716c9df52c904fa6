package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"kbrag/internal/rag"
)

// Extractor converts raw document bytes into an ordered sequence of
// structural units.
type Extractor interface {
	Extract(r io.Reader, filename string) ([]rag.StructuralUnit, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate extractor for a filename.
func ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".csv":
		return &CSVExtractor{}, nil
	case ".html", ".htm":
		return &HTMLExtractor{}, nil
	case ".pdf":
		return &PDFExtractor{}, nil
	case ".docx":
		return &DOCXExtractor{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", rag.ErrUnsupportedFormat, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// File extracts a document from disk. A supported file that yields no text
// (e.g. an image-only PDF) produces an ExtractionError.
func File(path string) (*rag.Document, error) {
	ex, err := ForFile(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &rag.ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	units, err := ex.Extract(f, filepath.Base(path))
	if err != nil {
		return nil, &rag.ExtractionError{Path: path, Err: err}
	}
	if len(units) == 0 {
		return nil, &rag.ExtractionError{Path: path, Err: errors.New("no extractable text")}
	}

	return &rag.Document{
		DocID:      rag.DocIDFromPath(path),
		Title:      titleFromFilename(filepath.Base(path)),
		SourcePath: path,
		Units:      units,
	}, nil
}

func titleFromFilename(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// unitList accumulates structural units, assigning order indexes and
// dropping whitespace-only text.
type unitList struct {
	units []rag.StructuralUnit
}

func (u *unitList) add(text string, page int, section string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	u.units = append(u.units, rag.StructuralUnit{
		Text:       text,
		Page:       page,
		Section:    section,
		OrderIndex: len(u.units),
	})
}

// isHeadingLine reports whether a line looks like a section heading: short,
// and either colon-terminated, all-caps, or a markdown-style heading.
func isHeadingLine(line string) bool {
	if len(line) == 0 || len(line) >= 80 {
		return false
	}
	if strings.HasPrefix(line, "#") || strings.HasSuffix(line, ":") {
		return true
	}
	hasLetter := false
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

func trimHeading(line string) string {
	line = strings.TrimLeft(line, "# ")
	return strings.TrimSuffix(line, ":")
}
