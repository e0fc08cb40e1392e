package reconcile

import "sort"

type Station string

const (
	StationKitchen Station = "cozinha"
	StationBar     Station = "bar"
)

// MinDurationSamples is the number of in-range samples a day needs before
// it is reported.
const MinDurationSamples = 3

// DurationSample is the time in seconds between order and delivery of one
// ticket at a station.
type DurationSample struct {
	Date    CalendarDay
	Station Station
	Seconds float64
}

// DurationRange bounds plausible durations in seconds, inclusive.
type DurationRange struct {
	Min float64
	Max float64
}

func (r DurationRange) Contains(seconds float64) bool {
	return seconds >= r.Min && seconds <= r.Max
}

var durationRanges = map[Station]DurationRange{
	StationKitchen: {Min: 60, Max: 3600},
	StationBar:     {Min: 30, Max: 1800},
}

func RangeFor(station Station) (DurationRange, bool) {
	r, ok := durationRanges[station]
	return r, ok
}

// FilterDurations keeps the samples inside rng. Entry errors such as zero
// or multi-hour tickets fall out here.
func FilterDurations(samples []DurationSample, rng DurationRange) []DurationSample {
	out := make([]DurationSample, 0, len(samples))
	for _, sample := range samples {
		if rng.Contains(sample.Seconds) {
			out = append(out, sample)
		}
	}
	return out
}

// TrimQuartiles returns the sorted values without the lowest and highest
// quarter. Sets smaller than four are returned sorted and untouched.
func TrimQuartiles(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	cut := len(sorted) / 4
	return sorted[cut : len(sorted)-cut]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// DailyDurationAverages produces the per-day trimmed mean for a station.
// Samples from other stations are ignored.
func DailyDurationAverages(samples []DurationSample, station Station) []Point {
	rng, ok := RangeFor(station)
	if !ok {
		return []Point{}
	}

	byDay := make(map[CalendarDay][]float64)
	for _, sample := range FilterDurations(samples, rng) {
		if sample.Station != station || sample.Date == "" {
			continue
		}
		byDay[sample.Date] = append(byDay[sample.Date], sample.Seconds)
	}

	points := make([]Point, 0, len(byDay))
	for day, values := range byDay {
		if len(values) < MinDurationSamples {
			continue
		}
		points = append(points, Point{Date: day, Value: mean(TrimQuartiles(values))})
	}
	sortPoints(points)
	return points
}
