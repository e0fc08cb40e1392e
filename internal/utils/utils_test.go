package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestNumericToDecimal(t *testing.T) {
	var n pgtype.Numeric
	if err := n.Scan("1234.56"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got := NumericToDecimal(n).String(); got != "1234.56" {
		t.Fatalf("expected 1234.56, got %s", got)
	}
	if got := NumericToDecimal(pgtype.Numeric{}); !got.IsZero() {
		t.Fatalf("expected zero for NULL, got %s", got)
	}
	if got := NumericToFloat64(n); got != 1234.56 {
		t.Fatalf("expected 1234.56, got %v", got)
	}
}

func TestRetryFixed(t *testing.T) {
	calls := 0
	err := RetryFixed(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}

	calls = 0
	boom := errors.New("boom")
	err = RetryFixed(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestLoadLocationOrUTC(t *testing.T) {
	if loc := LoadLocationOrUTC("Not/AZone"); loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %s", loc)
	}
}
