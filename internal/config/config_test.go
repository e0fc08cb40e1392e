package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("RECONCILE_PAGE_SIZE", "")
	t.Setenv("RECONCILE_VERIFY", "")

	cfg := Load()
	if cfg.HTTPAddr != ":8090" {
		t.Fatalf("expected default addr, got %q", cfg.HTTPAddr)
	}
	if cfg.ReconcilePageSize != 1000 {
		t.Fatalf("expected page size 1000, got %d", cfg.ReconcilePageSize)
	}
	if cfg.ReconcileVerify {
		t.Fatalf("verify should be off by default")
	}
	if cfg.SeriesCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected cache ttl %s", cfg.SeriesCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RECONCILE_PAGE_SIZE", "-5")
	t.Setenv("RECONCILE_VERIFY", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("SERIES_CACHE_TTL", "not-a-duration")
	t.Setenv("R2_BUCKET", "bars")

	cfg := Load()
	if cfg.ReconcilePageSize != 1000 {
		t.Fatalf("non-positive page size should fall back, got %d", cfg.ReconcilePageSize)
	}
	if !cfg.ReconcileVerify {
		t.Fatalf("verify should be on")
	}
	if len(cfg.CorsAllowedOrigins) != 2 {
		t.Fatalf("unexpected origins %v", cfg.CorsAllowedOrigins)
	}
	if cfg.SeriesCacheTTL != 5*time.Minute {
		t.Fatalf("invalid duration should fall back, got %s", cfg.SeriesCacheTTL)
	}
	if cfg.ObjectStoreBucket != "bars" {
		t.Fatalf("legacy bucket variable ignored")
	}
}
