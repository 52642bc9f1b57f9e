package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/mdtable"
)

// csvBatchSize is the number of data rows per rendered table.
const csvBatchSize = 20

// CSVParser handles CSV files. Rows are grouped into tables of csvBatchSize
// data rows, each repeating the header row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Source, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	src := &doctree.Source{Title: stem(filename)}
	if len(records) == 0 {
		return src, nil
	}

	// First row is headers.
	headers := records[0]
	dataRows := records[1:]

	// A header-only file still renders, with one empty data row.
	if len(dataRows) == 0 {
		dataRows = [][]string{{}}
	}

	var blocks []string
	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))
		rows := append([][]string{headers}, dataRows[i:end]...)
		blocks = append(blocks, mdtable.Render(rows))
	}
	src.Markdown = joinBlocks(blocks)
	return src, nil
}
