package core

import "github.com/shopspring/decimal"

// Record is one normalized input row. MonthNumber and Quarter are derived
// once during normalization. Revenue and Target are invalid when the cell
// was blank; blank values are left out of every sum.
type Record struct {
	PeriodLabel string              `json:"period_label"`
	Year        int                 `json:"year"`
	Revenue     decimal.NullDecimal `json:"revenue"`
	Target      decimal.NullDecimal `json:"target"`
	MonthNumber int                 `json:"month_number"`
	Quarter     int                 `json:"quarter"`
}

// Dataset is ordered by (Year, MonthNumber) once normalized.
type Dataset []Record

// YearSummary totals one year of the filtered dataset.
type YearSummary struct {
	Year            int             `json:"year"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalTarget     decimal.Decimal `json:"total_target"`
	AttainmentRatio decimal.Decimal `json:"attainment_ratio"`
}

// MonthYearCell is the revenue of every row sharing a period label and year.
type MonthYearCell struct {
	PeriodLabel string          `json:"period_label"`
	MonthNumber int             `json:"month_number"`
	Year        int             `json:"year"`
	RevenueSum  decimal.Decimal `json:"revenue_sum"`
}

// PivotRow holds one value per PivotTable.Years entry; an invalid value
// marks a period/year combination with no rows.
type PivotRow struct {
	PeriodLabel string                `json:"period_label"`
	MonthNumber int                   `json:"month_number"`
	Values      []decimal.NullDecimal `json:"values"`
}

// PivotTable is the month-by-year revenue grid.
type PivotTable struct {
	Years []int      `json:"years"`
	Rows  []PivotRow `json:"rows"`
}

// Cell returns the revenue for a period label and year. ok is false when
// the combination is absent.
func (p PivotTable) Cell(periodLabel string, year int) (decimal.Decimal, bool) {
	col := -1
	for i, y := range p.Years {
		if y == year {
			col = i
			break
		}
	}
	if col == -1 {
		return decimal.Zero, false
	}
	for _, row := range p.Rows {
		if row.PeriodLabel != periodLabel {
			continue
		}
		v := row.Values[col]
		return v.Decimal, v.Valid
	}
	return decimal.Zero, false
}

// GrowthMetric compares total revenue of the two most recent years.
type GrowthMetric struct {
	YearCurrent  int             `json:"year_current"`
	YearPrevious int             `json:"year_previous"`
	GrowthPct    decimal.Decimal `json:"growth_pct"`
}

// Report is everything derived from one table. Growth is nil when it cannot
// be computed.
type Report struct {
	YearSummaries  []YearSummary          `json:"year_summaries"`
	MonthYearCells []MonthYearCell        `json:"month_year_cells"`
	PivotTable     PivotTable             `json:"pivot_table"`
	Growth         *GrowthMetric          `json:"growth"`
	DroppedRows    int                    `json:"dropped_rows"`
	Issues         []MalformedRecordError `json:"issues,omitempty"`
}

// Years lists the years covered by the report in ascending order.
func (r Report) Years() []int {
	out := make([]int, 0, len(r.YearSummaries))
	for _, s := range r.YearSummaries {
		out = append(out, s.Year)
	}
	return out
}
