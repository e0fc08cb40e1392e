package db

import (
	"context"
	"testing"
)

func TestNewPoolRejectsBadURL(t *testing.T) {
	if _, err := NewPool(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := NewPool(context.Background(), "postgres://%zz"); err == nil {
		t.Fatalf("expected parse error")
	}
}
