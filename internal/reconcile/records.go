package reconcile

import "github.com/shopspring/decimal"

type SourceKind string

const (
	SourcePayments      SourceKind = "pagamentos"
	SourcePosAttendance SourceKind = "periodo"
	SourceTicketed      SourceKind = "yuzer_analitico"
	SourceReservations  SourceKind = "cliente_visitas"
)

// Policy holds business assumptions that feed into aggregation.
type Policy struct {
	// PerPersonEstimate replaces the sale amount of ticketed records that
	// carry only a quantity. It is an estimate, not a measured value.
	PerPersonEstimate decimal.Decimal
}

var DefaultPolicy = Policy{PerPersonEstimate: decimal.NewFromInt(100)}

// Record is one row from any source. Each variant knows which metrics it
// feeds and how much it adds to a day.
type Record interface {
	Source() SourceKind
	Day() CalendarDay
	Contribution(metric Metric, policy Policy) (decimal.Decimal, bool)
}

type PaymentRecord struct {
	Date      CalendarDay
	NetAmount decimal.Decimal
}

func (r PaymentRecord) Source() SourceKind { return SourcePayments }
func (r PaymentRecord) Day() CalendarDay   { return r.Date }

func (r PaymentRecord) Contribution(metric Metric, _ Policy) (decimal.Decimal, bool) {
	if metric == MetricRevenue {
		return r.NetAmount, true
	}
	return decimal.Zero, false
}

type PosAttendanceRecord struct {
	Date   CalendarDay
	People int64
}

func (r PosAttendanceRecord) Source() SourceKind { return SourcePosAttendance }
func (r PosAttendanceRecord) Day() CalendarDay   { return r.Date }

func (r PosAttendanceRecord) Contribution(metric Metric, _ Policy) (decimal.Decimal, bool) {
	if metric == MetricAttendance {
		return decimal.NewFromInt(r.People), true
	}
	return decimal.Zero, false
}

// TicketedEventRecord is a ticket line item from an event platform. Some
// exports carry only the quantity sold.
type TicketedEventRecord struct {
	Date        CalendarDay
	TotalAmount *decimal.Decimal
	Quantity    int64
}

func (r TicketedEventRecord) Source() SourceKind { return SourceTicketed }
func (r TicketedEventRecord) Day() CalendarDay   { return r.Date }

func (r TicketedEventRecord) Contribution(metric Metric, policy Policy) (decimal.Decimal, bool) {
	switch metric {
	case MetricRevenue:
		if r.TotalAmount != nil {
			return *r.TotalAmount, true
		}
		return policy.PerPersonEstimate.Mul(decimal.NewFromInt(r.Quantity)), true
	case MetricAttendance:
		return decimal.NewFromInt(r.Quantity), true
	default:
		return decimal.Zero, false
	}
}

type ReservationCheckinRecord struct {
	Date      CalendarDay
	PartySize int64
}

func (r ReservationCheckinRecord) Source() SourceKind { return SourceReservations }
func (r ReservationCheckinRecord) Day() CalendarDay   { return r.Date }

func (r ReservationCheckinRecord) Contribution(metric Metric, _ Policy) (decimal.Decimal, bool) {
	switch metric {
	case MetricAttendance:
		return decimal.NewFromInt(r.PartySize), true
	case MetricReservations:
		return decimal.NewFromInt(1), true
	default:
		return decimal.Zero, false
	}
}
