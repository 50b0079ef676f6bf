package memory

import (
	"context"
	"os"
	"path/filepath"

	"faturamento/internal/core"
	ports "faturamento/internal/sheets"
	"faturamento/internal/sheets/file"
)

// SeedFile is the table NewFromFiles looks for under its base directory.
const SeedFile = "faturamento.csv"

// Store serves a fixed table. Reads return copies, so callers cannot
// change it.
type Store struct {
	table core.Table
}

var _ ports.TableReader = (*Store)(nil)

func New(t core.Table) *Store {
	return &Store{table: copyTable(t)}
}

// NewFromFiles seeds the store from base/faturamento.csv. A missing or
// unreadable seed yields a table with the default header and no rows.
func NewFromFiles(base string) *Store {
	f, err := os.Open(filepath.Join(base, SeedFile))
	if err != nil {
		return New(emptyTable())
	}
	defer f.Close()

	t, err := file.ReadCSV(f)
	if err != nil || len(t.Header) == 0 {
		return New(emptyTable())
	}
	return New(t)
}

// ReadTable returns a copy of the stored table.
func (s *Store) ReadTable(_ context.Context) (core.Table, error) {
	return copyTable(s.table), nil
}

func emptyTable() core.Table {
	c := core.DefaultColumnNames()
	return core.Table{Header: []string{c.PeriodMarker, c.Year, c.Revenue, c.Target}}
}

func copyTable(t core.Table) core.Table {
	out := core.Table{Header: append([]string(nil), t.Header...)}
	out.Rows = make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append([]any(nil), r...)
	}
	return out
}
