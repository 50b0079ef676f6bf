package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	PolicyAbort MalformedRowPolicy = "abort"
	PolicyDrop  MalformedRowPolicy = "drop"
)

type (
	// MalformedRowPolicy decides what normalization does with a row that
	// fails type coercion.
	MalformedRowPolicy string

	// Table is a parsed spreadsheet as handed over by a source: one header
	// row and data rows whose cells keep the source's native types
	// (string, float64, int, int64 or nil).
	Table struct {
		Header []string
		Rows   [][]any
	}

	// ColumnNames configures how the four required columns are located.
	// The period column is matched by substring, the others by name.
	ColumnNames struct {
		PeriodMarker string `json:"period_marker"`
		Year         string `json:"year"`
		Revenue      string `json:"revenue"`
		Target       string `json:"target"`
	}

	// Options are the caller-facing knobs of a report run.
	Options struct {
		Columns  ColumnNames        `json:"columns"`
		Years    []int              `json:"years"`    // nil selects every year present
		Quarters []int              `json:"quarters"` // nil selects every quarter present
		Policy   MalformedRowPolicy `json:"policy"`
	}
)

var (
	ErrInvalidQuarter = errors.New("invalid quarter")
	ErrInvalidPolicy  = errors.New("invalid malformed row policy")
)

// DefaultColumnNames matches the layout of the monthly revenue workbook.
func DefaultColumnNames() ColumnNames {
	return ColumnNames{
		PeriodMarker: "Mês",
		Year:         "Ano",
		Revenue:      "Faturamento - Valor",
		Target:       "Meta - Valor",
	}
}

// WithDefaults fills every blank name from DefaultColumnNames.
func (c ColumnNames) WithDefaults() ColumnNames {
	def := DefaultColumnNames()
	if strings.TrimSpace(c.PeriodMarker) == "" {
		c.PeriodMarker = def.PeriodMarker
	}
	if strings.TrimSpace(c.Year) == "" {
		c.Year = def.Year
	}
	if strings.TrimSpace(c.Revenue) == "" {
		c.Revenue = def.Revenue
	}
	if strings.TrimSpace(c.Target) == "" {
		c.Target = def.Target
	}
	return c
}

// WithDefaults returns a copy with default column names and the abort policy
// filled in. Year and quarter selections are left untouched.
func (o Options) WithDefaults() Options {
	o.Columns = o.Columns.WithDefaults()
	if o.Policy == "" {
		o.Policy = PolicyAbort
	}
	return o
}

func (o Options) Validate() error {
	switch o.Policy {
	case PolicyAbort, PolicyDrop:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, o.Policy)
	}
	for _, q := range o.Quarters {
		if q < 1 || q > 4 {
			return fmt.Errorf("%w: %d", ErrInvalidQuarter, q)
		}
	}
	return nil
}

// ParsePolicy maps user input onto a policy; blank input yields abort.
func ParsePolicy(s string) (MalformedRowPolicy, error) {
	switch p := MalformedRowPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyAbort, nil
	case PolicyAbort, PolicyDrop:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// Merge appends other's rows to a copy of t, aligning columns by header name
// (case-insensitive). Columns only other has are appended to the header.
func (t Table) Merge(other Table) Table {
	header := append([]string(nil), t.Header...)
	index := make(map[string]int, len(header)+len(other.Header))
	for i, h := range header {
		if _, ok := index[headerKey(h)]; !ok {
			index[headerKey(h)] = i
		}
	}

	mapping := make([]int, len(other.Header))
	for i, h := range other.Header {
		k := headerKey(h)
		if j, ok := index[k]; ok {
			mapping[i] = j
			continue
		}
		header = append(header, h)
		index[k] = len(header) - 1
		mapping[i] = len(header) - 1
	}

	rows := make([][]any, 0, len(t.Rows)+len(other.Rows))
	for _, r := range t.Rows {
		rows = append(rows, append([]any(nil), r...))
	}
	for _, r := range other.Rows {
		out := make([]any, len(header))
		for i, v := range r {
			if i < len(mapping) {
				out[mapping[i]] = v
			}
		}
		rows = append(rows, out)
	}
	return Table{Header: header, Rows: rows}
}

// Cell returns the value at (row, col) or nil when out of range.
func (t Table) Cell(row, col int) any {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][col]
}

func headerKey(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
