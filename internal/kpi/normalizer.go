package kpi

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"faturamento/internal/core"
)

// Normalize coerces every data row of table into a Record and returns the
// dataset ordered by (Year, MonthNumber).
//
// Rows whose cells are all blank are skipped. Under PolicyAbort the first
// malformed row fails the call; under PolicyDrop malformed rows are left out
// and returned as issues. The table is never modified.
func Normalize(table core.Table, cols Columns, policy core.MalformedRowPolicy) (core.Dataset, []core.MalformedRecordError, error) {
	ds := make(core.Dataset, 0, len(table.Rows))
	var issues []core.MalformedRecordError

	for i, row := range table.Rows {
		if blankRow(row) {
			continue
		}
		rec, bad := normalizeRow(i, row, cols)
		if bad != nil {
			if policy == core.PolicyDrop {
				issues = append(issues, *bad)
				continue
			}
			return nil, nil, bad
		}
		ds = append(ds, rec)
	}

	sort.SliceStable(ds, func(a, b int) bool {
		if ds[a].Year != ds[b].Year {
			return ds[a].Year < ds[b].Year
		}
		return ds[a].MonthNumber < ds[b].MonthNumber
	})
	return ds, issues, nil
}

func normalizeRow(i int, row []any, cols Columns) (core.Record, *core.MalformedRecordError) {
	cell := func(col int) any {
		if col < 0 || col >= len(row) {
			return nil
		}
		return row[col]
	}
	malformed := func(field string, v any, err error) *core.MalformedRecordError {
		return &core.MalformedRecordError{Row: i, Field: field, Value: cellText(v), Err: err}
	}

	label := cellText(cell(cols.Period))
	month, err := core.ParsePeriod(label)
	if err != nil {
		return core.Record{}, malformed(core.FieldPeriod, cell(cols.Period), err)
	}

	year, err := yearCell(cell(cols.Year))
	if err != nil {
		return core.Record{}, malformed(core.FieldYear, cell(cols.Year), err)
	}

	revenue, err := amountCell(cell(cols.Revenue))
	if err != nil {
		return core.Record{}, malformed(core.FieldRevenue, cell(cols.Revenue), err)
	}

	target, err := amountCell(cell(cols.Target))
	if err != nil {
		return core.Record{}, malformed(core.FieldTarget, cell(cols.Target), err)
	}

	return core.Record{
		PeriodLabel: label,
		Year:        year,
		Revenue:     revenue,
		Target:      target,
		MonthNumber: month,
		Quarter:     core.Quarter(month),
	}, nil
}

func yearCell(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return core.ParseYear(strconv.Itoa(x))
	case int64:
		return core.ParseYear(strconv.FormatInt(x, 10))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return 0, core.ErrInvalidYear
		}
		return core.ParseYear(strconv.FormatFloat(x, 'f', 0, 64))
	default:
		return core.ParseYear(cellText(v))
	}
}

// amountCell returns an invalid NullDecimal for blank cells.
func amountCell(v any) (decimal.NullDecimal, error) {
	var d decimal.Decimal
	switch x := v.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.NullDecimal{}, core.ErrInvalidAmount
		}
		d = decimal.NewFromFloat(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case decimal.Decimal:
		d = x
	default:
		parsed, err := core.ParseAmount(cellText(v))
		if errors.Is(err, core.ErrMissingValue) {
			return decimal.NullDecimal{}, nil
		}
		if err != nil {
			return decimal.NullDecimal{}, err
		}
		d = parsed
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, core.ErrNegativeAmount
	}
	return decimal.NewNullDecimal(d), nil
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func blankRow(row []any) bool {
	for _, v := range row {
		if cellText(v) != "" {
			return false
		}
	}
	return true
}
