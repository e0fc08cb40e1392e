// Package cache stores serialized metric series between requests.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Key joins prefix, bar and parts with "|". Keys for one bar share the
// prefix returned by BarPrefix.
func Key(prefix string, barID int64, parts ...string) string {
	segments := make([]string, 0, 2+len(parts))
	segments = append(segments, prefix, fmt.Sprint(barID))
	segments = append(segments, parts...)
	return strings.Join(segments, "|")
}

func BarPrefix(prefix string, barID int64) string {
	return Key(prefix, barID) + "|"
}
