package cache

import (
	"sort"
	"strconv"
	"strings"

	"faturamento/internal/core"
)

// KeyFor builds a stable cache key for a report over source with opts.
// Selections are order-insensitive; a nil selection differs from an empty one.
func KeyFor(source string, opts core.Options) string {
	opts = opts.WithDefaults()
	c := opts.Columns

	var b strings.Builder
	b.WriteString(source)
	b.WriteString("|y=")
	b.WriteString(intSet(opts.Years))
	b.WriteString("|q=")
	b.WriteString(intSet(opts.Quarters))
	b.WriteString("|p=")
	b.WriteString(string(opts.Policy))
	b.WriteString("|c=")
	b.WriteString(strings.ToLower(strings.Join([]string{c.PeriodMarker, c.Year, c.Revenue, c.Target}, "\x1f")))
	return b.String()
}

func intSet(v []int) string {
	if v == nil {
		return "*"
	}
	s := append([]int(nil), v...)
	sort.Ints(s)
	parts := make([]string, 0, len(s))
	for i, n := range s {
		if i > 0 && n == s[i-1] {
			continue
		}
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ",")
}
