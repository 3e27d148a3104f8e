package table

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxParser struct{}

func (xlsxParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Parse reads the first sheet; its first row is the header.
func (xlsxParser) Parse(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("open xlsx: %w", err)}
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Err: errors.New("workbook has no sheets")}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("read sheet %q: %w", sheets[0], err)}
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	header, records := rows[0], rows[1:]
	// Cells past the header width become unnamed columns.
	for _, rec := range records {
		for len(header) < len(rec) {
			header = append(header, "")
		}
	}
	return fromRecords(header, records)
}
