package sources

import (
	"context"
	"fmt"

	"barmetrics-service/internal/reconcile"
	"barmetrics-service/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentsQuery = `
	select dt_gerencial::text, liquido
	from pagamentos
	where bar_id = $1
	  and dt_gerencial >= $2::date
	  and dt_gerencial <= $3::date
	order by dt_gerencial asc, id asc
	limit $4 offset $5
`

const posAttendanceQuery = `
	select dt_gerencial::text, pessoas
	from periodo
	where bar_id = $1
	  and dt_gerencial >= $2::date
	  and dt_gerencial <= $3::date
	order by dt_gerencial asc, id asc
	limit $4 offset $5
`

const ticketedEventsQuery = `
	select data_evento::date::text, valor_total, quantidade
	from yuzer_analitico
	where bar_id = $1
	  and data_evento::date >= $2::date
	  and data_evento::date <= $3::date
	  and lower(categoria) = 'ticket'
	order by data_evento asc, id asc
	limit $4 offset $5
`

const reservationsQuery = `
	select data_visita::text, pessoas
	from cliente_visitas
	where bar_id = $1
	  and data_visita >= $2::date
	  and data_visita <= $3::date
	  and checkin_at is not null
	order by data_visita asc, id asc
	limit $4 offset $5
`

const durationsQuery = `
	select dia::text, duracao_segundos
	from tempo
	where bar_id = $1
	  and dia >= $2::date
	  and dia <= $3::date
	  and categoria = $6
	order by dia asc, id asc
	limit $4 offset $5
`

func scanDay(value pgtype.Text) (reconcile.CalendarDay, error) {
	if !value.Valid {
		return "", fmt.Errorf("%w: null day", ErrMalformedRow)
	}
	day, err := reconcile.ParseDay(value.String)
	if err != nil {
		return "", fmt.Errorf("%w: day %q", ErrMalformedRow, value.String)
	}
	return day, nil
}

func NewPayments(db Querier, pageSize int) *PagedSource {
	return &PagedSource{
		db:       db,
		kind:     reconcile.SourcePayments,
		query:    paymentsQuery,
		pageSize: pageSizeOr(pageSize),
		scan: func(rows pgx.Rows) (reconcile.Record, error) {
			var (
				day    pgtype.Text
				amount pgtype.Numeric
			)
			if err := rows.Scan(&day, &amount); err != nil {
				return nil, err
			}
			d, err := scanDay(day)
			if err != nil {
				return nil, err
			}
			return reconcile.PaymentRecord{Date: d, NetAmount: utils.NumericToDecimal(amount)}, nil
		},
	}
}

func NewPosAttendance(db Querier, pageSize int) *PagedSource {
	return &PagedSource{
		db:       db,
		kind:     reconcile.SourcePosAttendance,
		query:    posAttendanceQuery,
		pageSize: pageSizeOr(pageSize),
		scan: func(rows pgx.Rows) (reconcile.Record, error) {
			var (
				day    pgtype.Text
				people pgtype.Int8
			)
			if err := rows.Scan(&day, &people); err != nil {
				return nil, err
			}
			d, err := scanDay(day)
			if err != nil {
				return nil, err
			}
			if people.Int64 < 0 {
				return nil, fmt.Errorf("%w: negative attendance", ErrMalformedRow)
			}
			return reconcile.PosAttendanceRecord{Date: d, People: people.Int64}, nil
		},
	}
}

func NewTicketedEvents(db Querier, pageSize int) *PagedSource {
	return &PagedSource{
		db:       db,
		kind:     reconcile.SourceTicketed,
		query:    ticketedEventsQuery,
		pageSize: pageSizeOr(pageSize),
		scan: func(rows pgx.Rows) (reconcile.Record, error) {
			var (
				day      pgtype.Text
				total    pgtype.Numeric
				quantity pgtype.Int8
			)
			if err := rows.Scan(&day, &total, &quantity); err != nil {
				return nil, err
			}
			d, err := scanDay(day)
			if err != nil {
				return nil, err
			}
			if quantity.Int64 < 0 {
				return nil, fmt.Errorf("%w: negative ticket quantity", ErrMalformedRow)
			}
			record := reconcile.TicketedEventRecord{Date: d, Quantity: quantity.Int64}
			if total.Valid {
				amount := utils.NumericToDecimal(total)
				record.TotalAmount = &amount
			}
			return record, nil
		},
	}
}

func NewReservations(db Querier, pageSize int) *PagedSource {
	return &PagedSource{
		db:       db,
		kind:     reconcile.SourceReservations,
		query:    reservationsQuery,
		pageSize: pageSizeOr(pageSize),
		scan: func(rows pgx.Rows) (reconcile.Record, error) {
			var (
				day   pgtype.Text
				party pgtype.Int8
			)
			if err := rows.Scan(&day, &party); err != nil {
				return nil, err
			}
			d, err := scanDay(day)
			if err != nil {
				return nil, err
			}
			if party.Int64 < 0 {
				return nil, fmt.Errorf("%w: negative party size", ErrMalformedRow)
			}
			return reconcile.ReservationCheckinRecord{Date: d, PartySize: party.Int64}, nil
		},
	}
}

// Durations pages raw ticket times for one station.
type Durations struct {
	db       Querier
	pageSize int
}

func NewDurations(db Querier, pageSize int) *Durations {
	return &Durations{db: db, pageSize: pageSizeOr(pageSize)}
}

func (s *Durations) FetchDurations(ctx context.Context, barID int64, window reconcile.Window, station reconcile.Station) ([]reconcile.DurationSample, error) {
	return reconcile.FetchAllPages(ctx, s.pageSize, func(ctx context.Context, offset, limit int) ([]reconcile.DurationSample, error) {
		rows, err := s.db.Query(ctx, durationsQuery, barID, string(window.Start), string(window.End), limit, offset, string(station))
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		page := make([]reconcile.DurationSample, 0, limit)
		for rows.Next() {
			var (
				day     pgtype.Text
				seconds pgtype.Numeric
			)
			if err := rows.Scan(&day, &seconds); err != nil {
				return nil, err
			}
			d, err := scanDay(day)
			if err != nil {
				return nil, err
			}
			// nulls stay in the page so the offset cursor matches the table;
			// the range filter drops them later as zero-length tickets
			page = append(page, reconcile.DurationSample{
				Date:    d,
				Station: station,
				Seconds: utils.NumericToFloat64(seconds),
			})
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return page, nil
	})
}
