package reconcile

// Window is an inclusive range of calendar days.
type Window struct {
	Start CalendarDay `json:"inicio"`
	End   CalendarDay `json:"fim"`
}

// Valid is advisory; callers decide whether an inverted window is an error.
func (w Window) Valid() bool {
	return w.Start != "" && w.End != "" && !w.End.Before(w.Start)
}

func (w Window) Contains(day CalendarDay) bool {
	return !day.Before(w.Start) && !w.End.Before(day)
}

type Period struct {
	Requested Window
	Effective Window
	Clamped   bool
}

// ResolvePeriod clamps the start of the requested window up to the metric's
// earliest available day. The effective window must be echoed back to the
// caller so the displayed range matches what was queried.
func ResolvePeriod(metric Metric, start, end CalendarDay) Period {
	requested := Window{Start: start, End: end}
	period := Period{Requested: requested, Effective: requested}

	floor, ok := metric.Floor()
	if !ok {
		return period
	}
	if start.Before(floor) {
		period.Effective.Start = floor
		period.Clamped = true
	}
	return period
}
