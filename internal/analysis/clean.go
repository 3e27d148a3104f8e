package analysis

import (
	"strings"

	"github.com/KaramelBytes/geoportal/internal/table"
)

// YearColumn is kept as text labels after cleaning.
const YearColumn = "Year"

// Clean returns a normalized copy of t. The passes run in a fixed order:
// strip separators in text columns, coerce every cell to numeric, then turn
// the Year column back into text. Clean never fails and is idempotent.
func Clean(t *table.Table) *table.Table {
	if t == nil {
		return nil
	}
	out := t.Clone()
	stripSeparators(out)
	coerceNumeric(out)
	restoreYear(out)
	return out
}

// stripSeparators removes ',' and surrounding whitespace from text columns.
func stripSeparators(t *table.Table) {
	for i := range t.Columns {
		col := &t.Columns[i]
		if col.Kind != table.KindText {
			continue
		}
		for j, c := range col.Cells {
			if c.Kind == table.CellText {
				col.Cells[j] = table.Text(strings.TrimSpace(strings.ReplaceAll(c.Str, ",", "")))
			}
		}
	}
}

// Coerce converts one cell to numeric. Text that is not a number becomes
// Missing.
func Coerce(c table.Cell) table.Cell {
	switch c.Kind {
	case table.CellNumeric:
		return c
	case table.CellText:
		if f, ok := table.ParseNumber(c.Str); ok {
			return table.Numeric(f)
		}
	}
	return table.Missing()
}

func coerceNumeric(t *table.Table) {
	for i := range t.Columns {
		col := &t.Columns[i]
		for j, c := range col.Cells {
			col.Cells[j] = Coerce(c)
		}
		col.Kind = table.KindNumeric
	}
}

// restoreYear must run after coerceNumeric.
func restoreYear(t *table.Table) {
	col, ok := t.Column(YearColumn)
	if !ok {
		return
	}
	for j, c := range col.Cells {
		col.Cells[j] = table.Text(c.String())
	}
	col.Kind = table.KindText
}
