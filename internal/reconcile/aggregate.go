package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"
)

type Point struct {
	Date   CalendarDay `json:"data"`
	Value  float64     `json:"valor"`
	Target *float64    `json:"meta,omitempty"`
}

// DailyTotals accumulates exact per-day sums. Decimal addition keeps the
// fold independent of source and record order.
type DailyTotals map[CalendarDay]decimal.Decimal

func (t DailyTotals) Add(day CalendarDay, value decimal.Decimal) {
	if current, ok := t[day]; ok {
		t[day] = current.Add(value)
		return
	}
	t[day] = value
}

func (t DailyTotals) Merge(other DailyTotals) {
	for day, value := range other {
		t.Add(day, value)
	}
}

// Series returns the positive days in ascending order.
func (t DailyTotals) Series() []Point {
	points := make([]Point, 0, len(t))
	for day, value := range t {
		if !value.IsPositive() {
			continue
		}
		points = append(points, Point{Date: day, Value: value.InexactFloat64()})
	}
	sortPoints(points)
	return points
}

func (t DailyTotals) Positive(day CalendarDay) (decimal.Decimal, bool) {
	value, ok := t[day]
	if !ok || !value.IsPositive() {
		return decimal.Zero, false
	}
	return value, true
}

// Aggregate folds heterogeneous source records into per-day totals for the
// metric. Records that do not feed the metric are ignored. Payments are net
// of refunds, so a single record may be negative; a day whose total nets to
// zero or less has no activity and is dropped.
func Aggregate(metric Metric, policy Policy, sources ...[]Record) DailyTotals {
	totals := make(DailyTotals)
	for _, records := range sources {
		for _, record := range records {
			day := record.Day()
			if day == "" {
				continue
			}
			value, ok := record.Contribution(metric, policy)
			if !ok {
				continue
			}
			totals.Add(day, value)
		}
	}
	for day, value := range totals {
		if !value.IsPositive() {
			delete(totals, day)
		}
	}
	return totals
}

func sortPoints(points []Point) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})
}
