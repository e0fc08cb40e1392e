package reconcile

import (
	"errors"
	"strings"
)

type Metric string

const (
	MetricRevenue      Metric = "faturamento"
	MetricAttendance   Metric = "clientes"
	MetricTicket       Metric = "ticket_medio"
	MetricReservations Metric = "reservas"
	MetricKitchenTime  Metric = "tempo_cozinha"
	MetricBarTime      Metric = "tempo_bar"
)

var ErrUnknownMetric = errors.New("unknown metric")

var AllMetrics = []Metric{
	MetricRevenue,
	MetricAttendance,
	MetricTicket,
	MetricReservations,
	MetricKitchenTime,
	MetricBarTime,
}

// Earliest day with trustworthy data per metric. Earlier rows exist for some
// tables but were imported before the ContaHub cutover.
var metricFloors = map[Metric]CalendarDay{
	MetricRevenue:      "2025-01-01",
	MetricAttendance:   "2025-01-01",
	MetricTicket:       "2025-01-01",
	MetricReservations: "2025-03-01",
	MetricKitchenTime:  "2025-02-01",
	MetricBarTime:      "2025-02-01",
}

func ParseMetric(value string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := metricFloors[m]; !ok {
		return "", ErrUnknownMetric
	}
	return m, nil
}

func (m Metric) Floor() (CalendarDay, bool) {
	floor, ok := metricFloors[m]
	return floor, ok
}

func (m Metric) IsDuration() bool {
	return m == MetricKitchenTime || m == MetricBarTime
}

func (m Metric) Station() Station {
	switch m {
	case MetricKitchenTime:
		return StationKitchen
	case MetricBarTime:
		return StationBar
	default:
		return ""
	}
}
