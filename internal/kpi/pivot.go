package kpi

import (
	"sort"

	"github.com/shopspring/decimal"

	"faturamento/internal/core"
)

// Pivot reshapes cells into a month-by-year grid. Rows follow month number
// (label breaks ties), columns follow year. Every row has a value slot for
// every year; combinations with no cell are left invalid.
func Pivot(cells []core.MonthYearCell) core.PivotTable {
	type rowKey struct {
		label string
		month int
	}

	yearSet := make(map[int]bool)
	rowSet := make(map[rowKey]bool)
	values := make(map[rowKey]map[int]decimal.Decimal)
	for _, c := range cells {
		k := rowKey{c.PeriodLabel, c.MonthNumber}
		yearSet[c.Year] = true
		rowSet[k] = true
		if values[k] == nil {
			values[k] = make(map[int]decimal.Decimal)
		}
		if v, ok := values[k][c.Year]; ok {
			values[k][c.Year] = v.Add(c.RevenueSum)
		} else {
			values[k][c.Year] = c.RevenueSum
		}
	}

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	keys := make([]rowKey, 0, len(rowSet))
	for k := range rowSet {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].month != keys[j].month {
			return keys[i].month < keys[j].month
		}
		return keys[i].label < keys[j].label
	})

	rows := make([]core.PivotRow, 0, len(keys))
	for _, k := range keys {
		row := core.PivotRow{
			PeriodLabel: k.label,
			MonthNumber: k.month,
			Values:      make([]decimal.NullDecimal, len(years)),
		}
		for i, y := range years {
			if v, ok := values[k][y]; ok {
				row.Values[i] = decimal.NewNullDecimal(v)
			}
		}
		rows = append(rows, row)
	}
	return core.PivotTable{Years: years, Rows: rows}
}
