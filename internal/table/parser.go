package table

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4"
)

// Parser turns an uploaded file into a Table.
type Parser interface {
	CanParse(filename string) bool
	Parse(data []byte) (*Table, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported table format")

// ParseError reports malformed delimited text or spreadsheet content.
type ParseError struct {
	Line int // 1-based record number, 0 when unknown
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse table: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse table: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse picks a parser by filename. Compressed uploads (.gz, .lz4) are
// unpacked first and dispatched on the inner name. Files without a known
// extension are read as delimited text.
func Parse(filename string, data []byte) (*Table, error) {
	name, data, err := decompress(filename, data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	for _, p := range registry {
		if p.CanParse(name) {
			return p.Parse(data)
		}
	}
	return csvParser{}.Parse(data)
}

func decompress(filename string, data []byte) (string, []byte, error) {
	name := strings.ToLower(filepath.Base(filename))
	var r io.Reader
	switch filepath.Ext(name) {
	case ".gz":
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return "", nil, fmt.Errorf("gunzip: %w", err)
		}
		defer gr.Close()
		r = gr
	case ".lz4":
		r = lz4.NewReader(bytes.NewReader(data))
	default:
		return name, data, nil
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", nil, fmt.Errorf("decompress %s: %w", name, err)
	}
	return strings.TrimSuffix(name, filepath.Ext(name)), out, nil
}

func init() {
	Register(csvParser{})
	Register(xlsxParser{})
}
