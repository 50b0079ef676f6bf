package kpi

import (
	"sort"

	"faturamento/internal/core"
)

// Filter keeps the records whose year is in years and whose quarter is in
// quarters. An empty selection keeps nothing; use Years and Quarters to
// select everything present. Order is preserved.
func Filter(ds core.Dataset, years, quarters []int) core.Dataset {
	ys := toSet(years)
	qs := toSet(quarters)

	out := make(core.Dataset, 0, len(ds))
	for _, r := range ds {
		if ys[r.Year] && qs[r.Quarter] {
			out = append(out, r)
		}
	}
	return out
}

// Years returns the distinct years of ds in ascending order.
func Years(ds core.Dataset) []int {
	return distinct(ds, func(r core.Record) int { return r.Year })
}

// Quarters returns the distinct quarters of ds in ascending order.
func Quarters(ds core.Dataset) []int {
	return distinct(ds, func(r core.Record) int { return r.Quarter })
}

func distinct(ds core.Dataset, key func(core.Record) int) []int {
	seen := make(map[int]bool)
	out := []int{}
	for _, r := range ds {
		k := key(r)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Ints(out)
	return out
}

func toSet(vals []int) map[int]bool {
	set := make(map[int]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}
