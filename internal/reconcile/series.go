package reconcile

// GoalConfig holds the targets a business unit tracks. Zero means no goal.
type GoalConfig struct {
	BarID            int64   `json:"bar_id"`
	RevenuePerDay    float64 `json:"meta_faturamento_dia"`
	AttendancePerDay float64 `json:"meta_clientes_dia"`
	AverageTicket    float64 `json:"meta_ticket_medio"`
	ReservationsDay  float64 `json:"meta_reservas_dia"`
	KitchenSeconds   float64 `json:"meta_tempo_cozinha"`
	BarSeconds       float64 `json:"meta_tempo_bar"`
}

func (g GoalConfig) Target(metric Metric) (float64, bool) {
	var v float64
	switch metric {
	case MetricRevenue:
		v = g.RevenuePerDay
	case MetricAttendance:
		v = g.AttendancePerDay
	case MetricTicket:
		v = g.AverageTicket
	case MetricReservations:
		v = g.ReservationsDay
	case MetricKitchenTime:
		v = g.KitchenSeconds
	case MetricBarTime:
		v = g.BarSeconds
	}
	return v, v > 0
}

type Series struct {
	Metric Metric   `json:"metrica"`
	Window Window   `json:"periodo"`
	Points []Point  `json:"pontos"`
	Target *float64 `json:"meta,omitempty"`
}

// WithTarget returns a copy of the series with the goal applied to every
// point. The input series is not modified.
func (s Series) WithTarget(goals GoalConfig) Series {
	target, ok := goals.Target(s.Metric)
	if !ok {
		return s
	}
	out := s
	out.Target = &target
	out.Points = make([]Point, len(s.Points))
	for i, p := range s.Points {
		p.Target = &target
		out.Points[i] = p
	}
	return out
}
