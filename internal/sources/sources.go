// Package sources reads the raw tables and aggregation functions that feed
// metric reconciliation.
package sources

import (
	"context"
	"errors"
	"fmt"

	"barmetrics-service/internal/reconcile"

	"github.com/jackc/pgx/v5"
)

var (
	ErrMalformedRow       = errors.New("malformed source row")
	ErrMalformedAggregate = errors.New("malformed aggregate row")
	ErrEmptyAggregate     = errors.New("aggregate returned no rows")
)

// Querier is the subset of *pgxpool.Pool the sources need.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanFunc func(rows pgx.Rows) (reconcile.Record, error)

// PagedSource pages through one table constrained to a bar and a window.
type PagedSource struct {
	db       Querier
	kind     reconcile.SourceKind
	query    string
	pageSize int
	scan     scanFunc
}

func (s *PagedSource) Name() reconcile.SourceKind {
	return s.kind
}

func (s *PagedSource) Fetch(ctx context.Context, barID int64, window reconcile.Window) ([]reconcile.Record, error) {
	return reconcile.FetchAllPages(ctx, s.pageSize, func(ctx context.Context, offset, limit int) ([]reconcile.Record, error) {
		rows, err := s.db.Query(ctx, s.query, barID, string(window.Start), string(window.End), limit, offset)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		page := make([]reconcile.Record, 0, limit)
		for rows.Next() {
			record, err := s.scan(rows)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", s.kind, offset+len(page), err)
			}
			page = append(page, record)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return page, nil
	})
}

func pageSizeOr(n int) int {
	if n <= 0 {
		return reconcile.DefaultPageSize
	}
	return n
}
