package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/rdhtml/internal/doctree"
)

// CSVParser handles CSV files. The first row names the fields; every further
// row becomes a description-list item keyed by its first cell.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &doctree.Document{}
	if len(records) < 2 {
		return doc, nil
	}

	headers := records[0]
	labels := labeler{}
	list := &doctree.DescList{}
	for _, row := range records[1:] {
		if len(row) == 0 {
			continue
		}
		item := doctree.NewDescListItem(labels.unique(row[0]), doctree.Text(row[0]))

		var fields []string
		for j, cell := range row[1:] {
			if j+1 < len(headers) {
				fields = append(fields, headers[j+1]+": "+cell)
			} else {
				fields = append(fields, cell)
			}
		}
		if len(fields) > 0 {
			doctree.Append(item, textBlock(strings.Join(fields, ", ")))
		}
		doctree.Append(list, item)
	}
	doctree.Append(doc, list)
	return doc, nil
}
