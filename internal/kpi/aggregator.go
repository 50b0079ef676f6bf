package kpi

import (
	"sort"

	"github.com/shopspring/decimal"

	"faturamento/internal/core"
)

var hundred = decimal.NewFromInt(100)

// SummarizeByYear totals revenue and target per distinct year, ascending.
// Missing values are left out of the totals.
func SummarizeByYear(ds core.Dataset) []core.YearSummary {
	byYear := make(map[int]*core.YearSummary)
	for _, r := range ds {
		s, ok := byYear[r.Year]
		if !ok {
			s = &core.YearSummary{Year: r.Year, TotalRevenue: decimal.Zero, TotalTarget: decimal.Zero}
			byYear[r.Year] = s
		}
		if r.Revenue.Valid {
			s.TotalRevenue = s.TotalRevenue.Add(r.Revenue.Decimal)
		}
		if r.Target.Valid {
			s.TotalTarget = s.TotalTarget.Add(r.Target.Decimal)
		}
	}

	out := make([]core.YearSummary, 0, len(byYear))
	for _, s := range byYear {
		s.AttainmentRatio = Attainment(s.TotalRevenue, s.TotalTarget)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Attainment is revenue/target, or zero when there is no positive target.
func Attainment(revenue, target decimal.Decimal) decimal.Decimal {
	if !target.IsPositive() {
		return decimal.Zero
	}
	return revenue.Div(target)
}

type cellKey struct {
	label string
	month int
	year  int
}

// SummarizeByMonthYear sums revenue per (period label, month, year). Rows
// sharing the triple collapse into one cell. Cells are ordered by month
// number, then year, then label.
func SummarizeByMonthYear(ds core.Dataset) []core.MonthYearCell {
	sums := make(map[cellKey]decimal.Decimal)
	for _, r := range ds {
		k := cellKey{r.PeriodLabel, r.MonthNumber, r.Year}
		sum, ok := sums[k]
		if !ok {
			sum = decimal.Zero
		}
		if r.Revenue.Valid {
			sum = sum.Add(r.Revenue.Decimal)
		}
		sums[k] = sum
	}

	out := make([]core.MonthYearCell, 0, len(sums))
	for k, sum := range sums {
		out = append(out, core.MonthYearCell{
			PeriodLabel: k.label,
			MonthNumber: k.month,
			Year:        k.year,
			RevenueSum:  sum,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.MonthNumber != b.MonthNumber {
			return a.MonthNumber < b.MonthNumber
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.PeriodLabel < b.PeriodLabel
	})
	return out
}

// Growth compares the two most recent years of summaries. It returns nil
// with fewer than two years or when the earlier year has no revenue.
func Growth(summaries []core.YearSummary) *core.GrowthMetric {
	if len(summaries) < 2 {
		return nil
	}
	sorted := append([]core.YearSummary(nil), summaries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	cur := sorted[len(sorted)-1]
	prev := sorted[len(sorted)-2]
	if prev.TotalRevenue.IsZero() {
		return nil
	}
	return &core.GrowthMetric{
		YearCurrent:  cur.Year,
		YearPrevious: prev.Year,
		GrowthPct:    cur.TotalRevenue.Sub(prev.TotalRevenue).Mul(hundred).Div(prev.TotalRevenue),
	}
}
