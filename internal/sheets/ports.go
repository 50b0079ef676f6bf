package sheets

import (
	"context"

	"faturamento/internal/core"
)

// Ports for inbound table sources.
type (
	// TableReader returns the full revenue table of a source: header row
	// plus data rows with the source's native cell types.
	TableReader interface {
		ReadTable(ctx context.Context) (core.Table, error)
	}
)

// FromValues builds a Table from a cell matrix whose first row is the
// header. Trailing blank header cells are dropped; data rows keep their
// values untouched.
func FromValues(values [][]any) core.Table {
	if len(values) == 0 {
		return core.Table{}
	}
	header := make([]string, 0, len(values[0]))
	for _, v := range values[0] {
		header = append(header, headerText(v))
	}
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}

	rows := make([][]any, 0, len(values)-1)
	for _, r := range values[1:] {
		rows = append(rows, append([]any(nil), r...))
	}
	return core.Table{Header: header, Rows: rows}
}
