package reconcile

import (
	"context"
	"fmt"
)

const DefaultPageSize = 1000

type PageFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// FetchAllPages walks pages one after another until a short page. When a
// page fails the rows collected so far are returned with the error.
func FetchAllPages[T any](ctx context.Context, pageSize int, fetch PageFunc[T]) ([]T, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var out []T
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		page, err := fetch(ctx, offset, pageSize)
		if err != nil {
			return out, fmt.Errorf("page at offset %d: %w", offset, err)
		}
		out = append(out, page...)
		if len(page) < pageSize {
			return out, nil
		}
		offset += pageSize
	}
}
