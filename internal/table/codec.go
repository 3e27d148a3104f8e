package table

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Wire form used for session blobs. Cells are JSON numbers, strings or null.
type wireTable struct {
	Columns []wireColumn `json:"columns"`
}

type wireColumn struct {
	Name  string            `json:"name"`
	Kind  string            `json:"kind"`
	Cells []json.RawMessage `json:"cells"`
}

var nullJSON = []byte("null")

// Marshal serializes a table for the session cache.
func Marshal(t *Table) ([]byte, error) {
	if t == nil {
		return nil, errors.New("marshal table: nil table")
	}
	w := wireTable{Columns: make([]wireColumn, len(t.Columns))}
	for i, c := range t.Columns {
		wc := wireColumn{Name: c.Name, Kind: c.Kind.String(), Cells: make([]json.RawMessage, len(c.Cells))}
		for j, cell := range c.Cells {
			var (
				b   []byte
				err error
			)
			switch cell.Kind {
			case CellNumeric:
				b, err = json.Marshal(cell.Num)
			case CellText:
				b, err = json.Marshal(cell.Str)
			default:
				b = nullJSON
			}
			if err != nil {
				return nil, fmt.Errorf("marshal column %q row %d: %w", c.Name, j, err)
			}
			wc.Cells[j] = b
		}
		w.Columns[i] = wc
	}
	return json.Marshal(w)
}

// Unmarshal restores a table written by Marshal.
func Unmarshal(data []byte) (*Table, error) {
	var w wireTable
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	cols := make([]Column, len(w.Columns))
	for i, wc := range w.Columns {
		col := Column{Name: wc.Name, Cells: make([]Cell, len(wc.Cells))}
		switch wc.Kind {
		case "numeric":
			col.Kind = KindNumeric
		case "text":
			col.Kind = KindText
		default:
			return nil, fmt.Errorf("decode table: column %q has unknown kind %q", wc.Name, wc.Kind)
		}
		for j, raw := range wc.Cells {
			cell, err := decodeCell(raw)
			if err != nil {
				return nil, fmt.Errorf("decode table: column %q row %d: %w", wc.Name, j, err)
			}
			col.Cells[j] = cell
		}
		cols[i] = col
	}
	return New(cols...)
}

func decodeCell(raw json.RawMessage) (Cell, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, nullJSON) {
		return Missing(), nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Cell{}, err
		}
		return Text(s), nil
	default:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Cell{}, err
		}
		return Numeric(f), nil
	}
}
