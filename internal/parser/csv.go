package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/rfpgest/internal/textclean"
)

// CSVParser handles CSV files as a single table, header row included, so
// table extraction configs address columns by position.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %v", ErrMalformedBody, err)
	}

	doc := &Document{Title: baseTitle(filename)}
	if len(records) == 0 {
		return doc, nil
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(rec))
		for i, cell := range rec {
			row[i] = textclean.Cell(cell)
		}
		rows = append(rows, row)
	}
	doc.Blocks = []Block{{Kind: BlockTable, Rows: rows}}
	return doc, nil
}
