package sources

import (
	"context"
	"fmt"
	"sort"

	"barmetrics-service/internal/reconcile"
	"barmetrics-service/internal/utils"

	"github.com/jackc/pgx/v5/pgtype"
)

const ticketAggregateQuery = `
	select dia::text, faturamento, clientes
	from get_ticket_medio_completo_por_dia($1, $2::date, $3::date)
`

const durationAggregateQuery = `
	select dia::text, media_segundos, amostras
	from get_tempos_por_dia($1, $2::date, $3::date, $4)
`

// Aggregates calls the server-side per-day aggregation functions.
type Aggregates struct {
	db Querier
}

func NewAggregates(db Querier) *Aggregates {
	return &Aggregates{db: db}
}

// DailyTicketTotals returns per-day revenue and attendance as computed by the
// database. Rows are validated before use.
func (a *Aggregates) DailyTicketTotals(ctx context.Context, barID int64, window reconcile.Window) (reconcile.DailyTotals, reconcile.DailyTotals, error) {
	rows, err := a.db.Query(ctx, ticketAggregateQuery, barID, string(window.Start), string(window.End))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	revenue := make(reconcile.DailyTotals)
	attendance := make(reconcile.DailyTotals)
	count := 0
	for rows.Next() {
		var (
			day    pgtype.Text
			amount pgtype.Numeric
			people pgtype.Numeric
		)
		if err := rows.Scan(&day, &amount, &people); err != nil {
			return nil, nil, err
		}
		count++

		d, err := aggregateDay(day, window)
		if err != nil {
			return nil, nil, err
		}
		rev := utils.NumericToDecimal(amount)
		att := utils.NumericToDecimal(people)
		if rev.IsNegative() || att.IsNegative() {
			return nil, nil, fmt.Errorf("%w: negative totals on %s", ErrMalformedAggregate, d)
		}
		if !rev.IsZero() {
			revenue.Add(d, rev)
		}
		if !att.IsZero() {
			attendance.Add(d, att)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if count == 0 {
		return nil, nil, ErrEmptyAggregate
	}
	return revenue, attendance, nil
}

// DailyDurations returns the per-day trimmed mean computed by the database.
// Days below the minimum sample count are dropped here as well.
func (a *Aggregates) DailyDurations(ctx context.Context, barID int64, window reconcile.Window, station reconcile.Station) ([]reconcile.Point, error) {
	rows, err := a.db.Query(ctx, durationAggregateQuery, barID, string(window.Start), string(window.End), string(station))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[reconcile.CalendarDay]struct{})
	points := make([]reconcile.Point, 0)
	count := 0
	for rows.Next() {
		var (
			day     pgtype.Text
			avg     pgtype.Numeric
			samples pgtype.Int8
		)
		if err := rows.Scan(&day, &avg, &samples); err != nil {
			return nil, err
		}
		count++

		d, err := aggregateDay(day, window)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[d]; dup {
			return nil, fmt.Errorf("%w: duplicate day %s", ErrMalformedAggregate, d)
		}
		seen[d] = struct{}{}
		if !samples.Valid || samples.Int64 <= 0 || !avg.Valid {
			return nil, fmt.Errorf("%w: missing samples on %s", ErrMalformedAggregate, d)
		}
		if samples.Int64 < reconcile.MinDurationSamples {
			continue
		}
		points = append(points, reconcile.Point{Date: d, Value: utils.NumericToFloat64(avg)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrEmptyAggregate
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}

func aggregateDay(value pgtype.Text, window reconcile.Window) (reconcile.CalendarDay, error) {
	if !value.Valid {
		return "", fmt.Errorf("%w: null day", ErrMalformedAggregate)
	}
	d, err := reconcile.ParseDay(value.String)
	if err != nil {
		return "", fmt.Errorf("%w: day %q", ErrMalformedAggregate, value.String)
	}
	if !window.Contains(d) {
		return "", fmt.Errorf("%w: day %s outside window", ErrMalformedAggregate, d)
	}
	return d, nil
}
