package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"kbrag/internal/rag"
)

// CSVExtractor handles CSV files. Rows are rendered as "header: value"
// lines and grouped into batches so each unit stays a reasonable size.
type CSVExtractor struct{}

const csvBatchSize = 20

func (e *CSVExtractor) Extract(r io.Reader, filename string) ([]rag.StructuralUnit, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	headers := records[0]
	dataRows := records[1:]

	var out unitList
	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))

		var text strings.Builder
		for _, row := range dataRows[i:end] {
			for j, cell := range row {
				if j > 0 {
					text.WriteString(", ")
				}
				if j < len(headers) {
					text.WriteString(headers[j] + ": " + cell)
				} else {
					text.WriteString(cell)
				}
			}
			text.WriteString("\n")
		}

		// 1-indexed row numbers, header row skipped.
		out.add(text.String(), 0, fmt.Sprintf("Rows %d-%d", i+2, end+1))
	}

	return out.units, nil
}
