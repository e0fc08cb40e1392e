package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"barmetrics-service/internal/config"
	"barmetrics-service/internal/http/handlers"
)

func TestHealthAndMetrics(t *testing.T) {
	h := handlers.New(config.Config{}, nil, nil, nil, nil, nil)
	router := NewRouter(nil, config.Config{Env: "production"}, h, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("request id middleware not applied")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("metrics endpoint not served")
	}
}

func TestEvolutionRouteValidates(t *testing.T) {
	h := handlers.New(config.Config{}, nil, nil, nil, nil, nil)
	router := NewRouter(nil, config.Config{}, h, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metricas/evolucao?metrica=faturamento", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
