package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/KaramelBytes/geoportal/internal/table"
)

// ErrUnknownTable is returned when a requested table is not in the listing.
var ErrUnknownTable = errors.New("unknown table")

// ListTables returns the base tables of the public schema, sorted by name,
// without the portal's own bookkeeping tables.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return visibleTables(names), nil
}

func visibleTables(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == usersTable || n == uploadsTable {
			continue
		}
		out = append(out, n)
	}
	return out
}

// FetchTable reads every row of the named public table. The name must be one
// returned by ListTables.
func (s *Store) FetchTable(ctx context.Context, name string) (*table.Table, error) {
	names, err := s.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(names, name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	ident := pgx.Identifier{"public", name}.Sanitize()
	rows, err := s.db.Query(ctx, "SELECT * FROM "+ident)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	numeric := make([]bool, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
		numeric[i] = isNumericOID(f.DataTypeOID)
	}
	var data [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", name, err)
		}
		data = append(data, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	return rowsToTable(cols, numeric, data)
}

func isNumericOID(oid uint32) bool {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID,
		pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return true
	}
	return false
}

// rowsToTable maps decoded pgx values column-wise into a Table.
func rowsToTable(names []string, numeric []bool, rows [][]any) (*table.Table, error) {
	cols := make([]table.Column, len(names))
	for i, n := range names {
		kind := table.KindText
		if numeric[i] {
			kind = table.KindNumeric
		}
		cols[i] = table.Column{Name: n, Kind: kind, Cells: make([]table.Cell, 0, len(rows))}
	}
	for r, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d values, want %d", r, len(row), len(names))
		}
		for i, v := range row {
			c := cellOf(v)
			// A text column never holds numeric cells.
			if !numeric[i] && c.Kind == table.CellNumeric {
				c = table.Text(table.FormatNumber(c.Num))
			}
			cols[i].Cells = append(cols[i].Cells, c)
		}
	}
	return table.New(cols...)
}

// cellOf converts one value produced by pgx.Rows.Values.
func cellOf(v any) table.Cell {
	switch x := v.(type) {
	case nil:
		return table.Missing()
	case int16:
		return table.Numeric(float64(x))
	case int32:
		return table.Numeric(float64(x))
	case int64:
		return table.Numeric(float64(x))
	case float32:
		return table.Numeric(float64(x))
	case float64:
		return table.Numeric(x)
	case pgtype.Numeric:
		if !x.Valid {
			return table.Missing()
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return table.Missing()
		}
		return table.Numeric(f.Float64)
	case string:
		return table.Text(x)
	case []byte:
		return table.Text(string(x))
	case bool:
		return table.Text(strconv.FormatBool(x))
	case time.Time:
		return table.Text(x.Format(time.RFC3339))
	default:
		return table.Text(fmt.Sprint(x))
	}
}
