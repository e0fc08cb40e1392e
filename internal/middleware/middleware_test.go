package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRequestIDKeepsCallerValue(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-Id")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-Id", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "abc-123" {
		t.Fatalf("expected correlation id to propagate, got %q", seen)
	}
	if rec.Header().Get("X-Request-Id") != "abc-123" {
		t.Fatalf("response header missing")
	}
}

func TestRequestIDGenerates(t *testing.T) {
	h := RequestID()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(rec.Header().Get("X-Request-Id")) != 36 {
		t.Fatalf("expected uuid request id, got %q", rec.Header().Get("X-Request-Id"))
	}
}

func TestTelemetryRecordsStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Telemetry(nil))
	r.Get("/teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

func TestPercentile(t *testing.T) {
	values := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(values, 0.5); got != 5 {
		t.Fatalf("p50 = %d", got)
	}
	if got := percentile(values, 0.95); got != 10 {
		t.Fatalf("p95 = %d", got)
	}
	if got := percentile(nil, 0.5); got != 0 {
		t.Fatalf("empty p50 = %d", got)
	}
}

func TestRouteLatenciesWindow(t *testing.T) {
	l := newRouteLatencies(3)
	for _, v := range []int64{100, 100, 100, 1, 1, 1} {
		l.observe("GET /x", v)
	}
	p50, p95 := l.observe("GET /x", 1)
	if p50 != 1 || p95 != 1 {
		t.Fatalf("old samples should roll out, got %d %d", p50, p95)
	}
}
