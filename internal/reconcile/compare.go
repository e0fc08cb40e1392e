package reconcile

import (
	"math"
	"sort"
)

type Mismatch struct {
	Date  CalendarDay
	Left  *float64
	Right *float64
}

// CompareSeries lists the days where two series disagree by more than
// tolerance, including days present on one side only.
func CompareSeries(left, right []Point, tolerance float64) []Mismatch {
	leftByDay := make(map[CalendarDay]float64, len(left))
	for _, p := range left {
		leftByDay[p.Date] = p.Value
	}
	rightByDay := make(map[CalendarDay]float64, len(right))
	for _, p := range right {
		rightByDay[p.Date] = p.Value
	}

	var out []Mismatch
	for day, l := range leftByDay {
		l := l
		r, ok := rightByDay[day]
		if !ok {
			out = append(out, Mismatch{Date: day, Left: &l})
			continue
		}
		if math.Abs(l-r) > tolerance {
			r := r
			out = append(out, Mismatch{Date: day, Left: &l, Right: &r})
		}
	}
	for day, r := range rightByDay {
		if _, ok := leftByDay[day]; ok {
			continue
		}
		r := r
		out = append(out, Mismatch{Date: day, Right: &r})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
