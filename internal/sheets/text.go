package sheets

import (
	"fmt"
	"strings"
)

func headerText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// StringRows widens a string matrix into the cell matrix FromValues expects.
// Empty strings become nil so blank cells read as missing values.
func StringRows(in [][]string) [][]any {
	out := make([][]any, len(in))
	for i, row := range in {
		cells := make([]any, len(row))
		for j, v := range row {
			if strings.TrimSpace(v) != "" {
				cells[j] = v
			}
		}
		out[i] = cells
	}
	return out
}
