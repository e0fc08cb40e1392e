package sources

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type testRows struct {
	values [][]any
	index  int
	err    error
}

func newTestRows(values ...[]any) *testRows {
	return &testRows{values: values, index: -1}
}

func (r *testRows) Close()                                       {}
func (r *testRows) Err() error                                   { return r.err }
func (r *testRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *testRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *testRows) RawValues() [][]byte                          { return nil }
func (r *testRows) Conn() *pgx.Conn                              { return nil }

func (r *testRows) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (r *testRows) Next() bool {
	r.index++
	return r.index < len(r.values)
}

func (r *testRows) Scan(dest ...any) error {
	row := r.values[r.index]
	if len(row) != len(dest) {
		return fmt.Errorf("scan: expected %d columns, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		scanner, ok := d.(sql.Scanner)
		if !ok {
			return fmt.Errorf("scan: column %d is not a scanner", i)
		}
		if err := scanner.Scan(row[i]); err != nil {
			return err
		}
	}
	return nil
}

type testRow struct {
	values []any
	err    error
}

func (r testRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	rows := newTestRows(r.values)
	rows.Next()
	return rows.Scan(dest...)
}

type recordedQuery struct {
	sql  string
	args []any
}

// testQuerier answers Query with a paged fixture and QueryRow with row.
type testQuerier struct {
	fixture [][]any
	failAt  int
	queries []recordedQuery
	row     func(call int) pgx.Row
	rowCall int
	err     error
}

func (q *testQuerier) Query(_ context.Context, sqlText string, args ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, recordedQuery{sql: sqlText, args: args})
	if q.err != nil {
		return nil, q.err
	}
	if len(args) < 5 {
		return newTestRows(q.fixture...), nil
	}
	limit := args[3].(int)
	offset := args[4].(int)
	if q.failAt > 0 && offset >= q.failAt {
		return nil, fmt.Errorf("connection reset")
	}
	if offset >= len(q.fixture) {
		return newTestRows(), nil
	}
	end := offset + limit
	if end > len(q.fixture) {
		end = len(q.fixture)
	}
	return newTestRows(q.fixture[offset:end]...), nil
}

func (q *testQuerier) QueryRow(_ context.Context, sqlText string, args ...any) pgx.Row {
	q.queries = append(q.queries, recordedQuery{sql: sqlText, args: args})
	q.rowCall++
	return q.row(q.rowCall)
}
