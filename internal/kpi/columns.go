// Package kpi turns a raw revenue table into year summaries, month/year
// cells, a pivot table and a growth metric.
//
// The pipeline has four independently usable stages: Normalize, Filter,
// the Summarize*/Growth aggregators and Pivot. Run chains them. Every stage
// is a pure function over its input.
package kpi

import (
	"strings"

	"faturamento/internal/core"
)

// Columns holds the header positions of the four required fields.
type Columns struct {
	Period  int
	Year    int
	Revenue int
	Target  int
}

// ResolveColumns locates the required columns in header. The period column
// is the first whose name contains the period marker; the others must match
// their configured name, ignoring case and surrounding spaces.
func ResolveColumns(header []string, names core.ColumnNames) (Columns, error) {
	names = names.WithDefaults()

	cols := Columns{
		Period:  indexContaining(header, names.PeriodMarker),
		Year:    indexOf(header, names.Year),
		Revenue: indexOf(header, names.Revenue),
		Target:  indexOf(header, names.Target),
	}

	missing := []struct {
		idx   int
		field string
		name  string
	}{
		{cols.Period, core.FieldPeriod, names.PeriodMarker},
		{cols.Year, core.FieldYear, names.Year},
		{cols.Revenue, core.FieldRevenue, names.Revenue},
		{cols.Target, core.FieldTarget, names.Target},
	}
	for _, m := range missing {
		if m.idx == -1 {
			return Columns{}, &core.ColumnNotFoundError{Field: m.field, Name: m.name, Header: header}
		}
	}
	return cols, nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

func indexContaining(header []string, marker string) int {
	marker = strings.ToLower(strings.TrimSpace(marker))
	for i, h := range header {
		if strings.Contains(strings.ToLower(h), marker) {
			return i
		}
	}
	return -1
}
