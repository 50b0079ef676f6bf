package kpi

import (
	"fmt"

	"faturamento/internal/core"
)

// Run normalizes table, applies the year/quarter selection and derives the
// full report. Nil selections select every year or quarter present.
func Run(table core.Table, opts core.Options) (core.Report, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return core.Report{}, err
	}

	cols, err := ResolveColumns(table.Header, opts.Columns)
	if err != nil {
		return core.Report{}, err
	}

	ds, issues, err := Normalize(table, cols, opts.Policy)
	if err != nil {
		return core.Report{}, fmt.Errorf("normalize: %w", err)
	}

	years, quarters := opts.Years, opts.Quarters
	if years == nil {
		years = Years(ds)
	}
	if quarters == nil {
		quarters = Quarters(ds)
	}
	filtered := Filter(ds, years, quarters)

	summaries := SummarizeByYear(filtered)
	cells := SummarizeByMonthYear(filtered)

	return core.Report{
		YearSummaries:  summaries,
		MonthYearCells: cells,
		PivotTable:     Pivot(cells),
		Growth:         Growth(summaries),
		DroppedRows:    len(issues),
		Issues:         issues,
	}, nil
}
