package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/agenthands/compat/internal/core/model"
)

const (
	ColumnProductID     = "Product ID"
	ColumnCompatibleIDs = "Compatible Product IDs"

	utf8BOM = "\ufeff"
)

// RequiredColumns lists the header labels every upload must carry, in report order.
var RequiredColumns = []string{ColumnProductID, ColumnCompatibleIDs}

type ParseOptions struct {
	// Delimiter separates cells. Zero means comma.
	Delimiter rune
}

// Row is one data line keyed by header label. A label is absent when the line
// had fewer cells than the header.
type Row struct {
	Line   int
	Fields map[string]string
}

// Value returns the cell for column and whether the row had one.
func (r Row) Value(column string) (string, bool) {
	v, ok := r.Fields[column]
	return v, ok
}

// Table is a parsed upload. Header is nil only when the input had no lines at all.
type Table struct {
	Header []string
	Rows   []Row
}

// HasColumn reports whether the header carries column exactly (case-sensitive).
func (t Table) HasColumn(column string) bool {
	for _, h := range t.Header {
		if h == column {
			return true
		}
	}
	return false
}

// Parse reads delimited text with a header row. Blank lines are skipped and row
// order is preserved. Extra cells beyond the header are dropped. Malformed text
// fails with *model.ParseError.
func Parse(r io.Reader, opts ParseOptions) (Table, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, toParseError(err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	table := Table{Header: header, Rows: []Row{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, toParseError(err)
		}

		line, _ := reader.FieldPos(0)
		fields := make(map[string]string, len(header))
		for i, column := range header {
			if i >= len(record) {
				break
			}
			// First occurrence wins for repeated header labels.
			if _, seen := fields[column]; seen {
				continue
			}
			fields[column] = record[i]
		}
		table.Rows = append(table.Rows, Row{Line: line, Fields: fields})
	}

	return table, nil
}

// toParseError keeps structural CSV errors as *model.ParseError and passes
// failures of the underlying reader through.
func toParseError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &model.ParseError{Line: csvErr.Line, Err: csvErr.Err}
	}
	return fmt.Errorf("read csv: %w", err)
}
