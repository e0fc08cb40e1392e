package reconcile

// AverageTicket divides revenue by attendance per day. Days missing from
// either side or without paying attendance are left out, never zeroed.
func AverageTicket(revenue, attendance DailyTotals) []Point {
	points := make([]Point, 0, len(revenue))
	for day, amount := range revenue {
		people, ok := attendance.Positive(day)
		if !ok {
			continue
		}
		points = append(points, Point{
			Date:  day,
			Value: amount.InexactFloat64() / people.InexactFloat64(),
		})
	}
	sortPoints(points)
	return points
}
