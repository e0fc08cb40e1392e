package sources

import (
	"context"
	"errors"
	"time"

	"barmetrics-service/internal/reconcile"
	"barmetrics-service/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const goalsQuery = `
	select meta_faturamento_dia, meta_clientes_dia, meta_ticket_medio,
	       meta_reservas_dia, meta_tempo_cozinha, meta_tempo_bar
	from metas_negocio
	where bar_id = $1
	order by updated_at desc nulls last
	limit 1
`

const (
	goalLoadAttempts = 3
	goalLoadDelay    = time.Second
)

type Goals struct {
	db    Querier
	delay time.Duration
}

func NewGoals(db Querier) *Goals {
	return &Goals{db: db, delay: goalLoadDelay}
}

// Load returns the bar's goals. A bar without a goals row gets an empty
// config. Other failures are retried a few times before surfacing.
func (g *Goals) Load(ctx context.Context, barID int64) (reconcile.GoalConfig, error) {
	cfg := reconcile.GoalConfig{BarID: barID}
	err := utils.RetryFixed(ctx, goalLoadAttempts, g.delay, func(ctx context.Context) error {
		var revenue, attendance, ticket, reservations, kitchen, bar pgtype.Numeric
		err := g.db.QueryRow(ctx, goalsQuery, barID).Scan(&revenue, &attendance, &ticket, &reservations, &kitchen, &bar)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		cfg.RevenuePerDay = utils.NumericToFloat64(revenue)
		cfg.AttendancePerDay = utils.NumericToFloat64(attendance)
		cfg.AverageTicket = utils.NumericToFloat64(ticket)
		cfg.ReservationsDay = utils.NumericToFloat64(reservations)
		cfg.KitchenSeconds = utils.NumericToFloat64(kitchen)
		cfg.BarSeconds = utils.NumericToFloat64(bar)
		return nil
	})
	if err != nil {
		return reconcile.GoalConfig{BarID: barID}, err
	}
	return cfg, nil
}
