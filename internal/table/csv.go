package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type csvParser struct{}

func (csvParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (csvParser) Parse(data []byte) (*Table, error) {
	return ParseCSV(bytes.NewReader(data), 0)
}

// naValues are read as missing, following the usual dataframe defaults.
var naValues = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true, "-1.#QNAN": true,
	"-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true, "<NA>": true, "N/A": true,
	"NA": true, "NULL": true, "NaN": true, "None": true, "n/a": true, "nan": true, "null": true,
}

// ParseCSV reads delimited text with a header row. A zero delim sniffs
// between ',', ';' and tab on the header line. A leading UTF-8 BOM is dropped.
func ParseCSV(r io.Reader, delim rune) (*Table, error) {
	raw, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("read: %w", err)}
	}
	if delim == 0 {
		delim = sniffDelimiter(raw)
	}
	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = delim
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Table{}, nil
		}
		return nil, &ParseError{Line: 1, Err: err}
	}
	var records [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ParseError{Line: len(records) + 2, Err: err}
		}
		if len(rec) > len(header) {
			return nil, &ParseError{Line: len(records) + 2, Err: fmt.Errorf("expected %d fields, saw %d", len(header), len(rec))}
		}
		records = append(records, rec)
	}
	return fromRecords(header, records)
}

// sniffDelimiter picks the most frequent candidate on the first line.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// fromRecords builds typed columns from a header and string records. Short
// rows are padded with missing cells. A column is numeric when every
// non-missing cell parses as a number.
func fromRecords(header []string, records [][]string) (*Table, error) {
	names := headerNames(header)
	cols := make([]Column, len(names))
	for j, name := range names {
		cells := make([]Cell, len(records))
		numeric := true
		for i, rec := range records {
			if j >= len(rec) || naValues[rec[j]] {
				cells[i] = Missing()
				continue
			}
			cells[i] = Text(rec[j])
			if _, ok := ParseNumber(rec[j]); !ok {
				numeric = false
			}
		}
		kind := KindText
		if numeric {
			kind = KindNumeric
			for i, c := range cells {
				if c.Kind == CellText {
					f, _ := ParseNumber(c.Str)
					cells[i] = Numeric(f)
				}
			}
		}
		cols[j] = Column{Name: name, Kind: kind, Cells: cells}
	}
	return New(cols...)
}

// headerNames fills blank names and de-duplicates repeats with ".N" suffixes,
// bumping N past any name already taken.
func headerNames(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	counts := map[string]int{}
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if used[name] {
			base, n := name, counts[name]
			for used[name] {
				n++
				name = base + "." + strconv.Itoa(n)
			}
			counts[base] = n
		}
		used[name] = true
		out[i] = name
	}
	return out
}
