// Package table holds the in-memory tabular model shared by the loader,
// cleaner and summarizer: named columns of cells aligned by row index.
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the declared or inferred scalar type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// CellKind tags the variant held by a Cell.
type CellKind uint8

const (
	CellMissing CellKind = iota
	CellNumeric
	CellText
)

// Cell is one value: Numeric(v), Missing or Text(s).
type Cell struct {
	Kind CellKind
	Num  float64
	Str  string
}

func Numeric(v float64) Cell { return Cell{Kind: CellNumeric, Num: v} }
func Text(s string) Cell     { return Cell{Kind: CellText, Str: s} }
func Missing() Cell          { return Cell{} }

func (c Cell) IsMissing() bool { return c.Kind == CellMissing }

// String renders the cell the way the pages display it. Missing renders as "nan".
func (c Cell) String() string {
	switch c.Kind {
	case CellNumeric:
		return FormatNumber(c.Num)
	case CellText:
		return c.Str
	default:
		return "nan"
	}
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// Table is an ordered list of equally long columns.
type Table struct {
	Columns []Column
}

// New builds a Table and checks that every column has the same length.
func New(cols ...Column) (*Table, error) {
	for i := 1; i < len(cols); i++ {
		if len(cols[i].Cells) != len(cols[0].Cells) {
			return nil, fmt.Errorf("column %q has %d rows, column %q has %d",
				cols[i].Name, len(cols[i].Cells), cols[0].Name, len(cols[0].Cells))
		}
	}
	return &Table{Columns: cols}, nil
}

// NumRows returns the shared column length.
func (t *Table) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Empty reports whether the table has no columns or no rows.
func (t *Table) Empty() bool { return t.NumCols() == 0 || t.NumRows() == 0 }

// Names returns column names in order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column returns the first column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	if t == nil {
		return nil, false
	}
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Clone deep-copies the table so callers can rewrite cells freely.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		out.Columns[i] = Column{Name: c.Name, Kind: c.Kind, Cells: cells}
	}
	return out
}

// ParseNumber converts numeric text to a float. NaN and infinity spellings,
// hex literals and blanks are rejected so they end up as missing values.
func ParseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	lower := strings.ToLower(strings.TrimLeft(raw, "+-"))
	if strings.HasPrefix(lower, "0x") || strings.Contains(lower, "_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatNumber prints integral values without a fraction ("2020") and
// everything else in the shortest exact form.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
