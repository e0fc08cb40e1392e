package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"barmetrics-service/internal/config"
	"barmetrics-service/internal/evolution"
	"barmetrics-service/internal/paymentqueue"
	"barmetrics-service/internal/queue"
	"barmetrics-service/internal/reconcile"
	"barmetrics-service/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvolution struct {
	last evolution.Request
	err  error
}

func (f *fakeEvolution) Evolution(_ context.Context, req evolution.Request) (evolution.Result, error) {
	f.last = req
	if f.err != nil {
		return evolution.Result{}, f.err
	}
	target := 150.0
	period := reconcile.ResolvePeriod(req.Metric, req.Start, req.End)
	return evolution.Result{
		Series: reconcile.Series{
			Metric: req.Metric,
			Window: period.Effective,
			Points: []reconcile.Point{{Date: period.Effective.Start, Value: 170, Target: &target}},
			Target: &target,
		},
		Period:         period,
		Path:           evolution.PathServer,
		SourceFailures: []reconcile.SourceKind{reconcile.SourceTicketed},
	}, nil
}

type fakeGoals struct{ err error }

func (f fakeGoals) Load(context.Context, int64) (reconcile.GoalConfig, error) {
	return reconcile.GoalConfig{RevenuePerDay: 12000}, f.err
}

type fakeDispatcher struct {
	jobs   []queue.RecomputeJob
	queued bool
}

func (f *fakeDispatcher) Dispatch(_ context.Context, job queue.RecomputeJob) (bool, error) {
	f.jobs = append(f.jobs, job)
	return f.queued, nil
}

type envelope struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
	Data    json.RawMessage   `json:"data"`
}

func newTestRouter(evo *fakeEvolution, dispatcher *fakeDispatcher) http.Handler {
	cfg := config.Config{Timezone: "America/Sao_Paulo"}
	h := New(cfg, nil, evo, fakeGoals{}, dispatcher, paymentqueue.NewStore(storage.NewMemory(), "pq", nil))

	r := chi.NewRouter()
	r.Get("/evolucao", h.MetricEvolution)
	r.Get("/evolucao/pdf", h.MetricEvolutionPDF)
	r.Get("/metas", h.GoalConfig)
	r.Post("/recalcular", h.RecomputeEvents)
	r.Get("/agendamentos", h.PaymentQueueList)
	r.Post("/agendamentos", h.PaymentQueueAdd)
	r.Delete("/agendamentos", h.PaymentQueueClear)
	r.Delete("/agendamentos/{id}", h.PaymentQueueRemove)
	return r
}

func do(t *testing.T, h http.Handler, method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, reader))

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestMetricEvolution(t *testing.T) {
	evo := &fakeEvolution{}
	router := newTestRouter(evo, &fakeDispatcher{})

	rec, env := do(t, router, http.MethodGet, "/evolucao?bar_id=3&metrica=Reservas&data_inicio=2025-01-01&data_fim=2025-03-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, reconcile.MetricReservations, evo.last.Metric)

	var data evolution.Payload
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Clamped)
	assert.Equal(t, reconcile.CalendarDay("2025-01-01"), data.Requested.Start)
	assert.Equal(t, reconcile.CalendarDay("2025-03-01"), data.Effective.Start)
	assert.Equal(t, evolution.PathServer, data.Path)
	assert.Equal(t, []reconcile.SourceKind{reconcile.SourceTicketed}, data.SourceFailures)
	require.Len(t, data.Points, 1)
	assert.Equal(t, 170.0, data.Points[0].Value)
}

func TestMetricEvolutionDefaultsWindow(t *testing.T) {
	evo := &fakeEvolution{}
	rec, _ := do(t, newTestRouter(evo, &fakeDispatcher{}), http.MethodGet, "/evolucao?bar_id=3&metrica=faturamento", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 29, int(evo.last.End.Time().Sub(evo.last.Start.Time()).Hours()/24))
}

func TestMetricEvolutionValidation(t *testing.T) {
	router := newTestRouter(&fakeEvolution{}, &fakeDispatcher{})
	cases := []struct {
		query string
		field string
	}{
		{"metrica=faturamento", "bar_id"},
		{"bar_id=abc&metrica=faturamento", "bar_id"},
		{"bar_id=1&metrica=lucro", "metrica"},
		{"bar_id=1&metrica=faturamento&data_inicio=01/02/2025", "data_inicio"},
		{"bar_id=1&metrica=faturamento&data_inicio=2025-03-01&data_fim=2025-02-01", "data_fim"},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			rec, env := do(t, router, http.MethodGet, "/evolucao?"+tc.query, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_ERROR", env.Error)
			assert.Contains(t, env.Fields, tc.field)
		})
	}
}

func TestMetricEvolutionUnknownMetric(t *testing.T) {
	evo := &fakeEvolution{}
	rec, env := do(t, newTestRouter(evo, &fakeDispatcher{}), http.MethodGet, "/evolucao?bar_id=1&metrica=lucro&data_inicio=2025-03-01&data_fim=2025-02-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{"metrica": "oneof"}, env.Fields)
	assert.Equal(t, evolution.Request{}, evo.last)
}

func TestMetricEvolutionFailure(t *testing.T) {
	rec, env := do(t, newTestRouter(&fakeEvolution{err: errors.New("db down")}, &fakeDispatcher{}), http.MethodGet, "/evolucao?bar_id=1&metrica=faturamento", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", env.Error)
}

func TestMetricEvolutionPDF(t *testing.T) {
	rec, _ := do(t, newTestRouter(&fakeEvolution{}, &fakeDispatcher{}), http.MethodGet, "/evolucao/pdf?bar_id=3&metrica=ticket_medio&data_inicio=2025-02-01&data_fim=2025-02-28", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "evolucao_3_ticket_medio_2025-02-01_2025-02-28.pdf")
}

func TestGoalConfig(t *testing.T) {
	rec, env := do(t, newTestRouter(&fakeEvolution{}, &fakeDispatcher{}), http.MethodGet, "/metas?bar_id=4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var goals reconcile.GoalConfig
	require.NoError(t, json.Unmarshal(env.Data, &goals))
	assert.Equal(t, int64(4), goals.BarID)
	assert.Equal(t, 12000.0, goals.RevenuePerDay)
}

func TestRecomputeEvents(t *testing.T) {
	dispatcher := &fakeDispatcher{queued: true}
	router := newTestRouter(&fakeEvolution{}, dispatcher)

	rec, env := do(t, router, http.MethodPost, "/recalcular", map[string]any{"bar_id": 3, "data_inicio": "2025-02-01", "data_fim": "2025-02-28"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, env.Success)
	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, int64(3), dispatcher.jobs[0].BarID)

	rec, env = do(t, router, http.MethodPost, "/recalcular", map[string]any{"bar_id": 3, "data_inicio": "2025-02-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Fields, "data_fim")
	assert.Len(t, dispatcher.jobs, 1)
}

func TestPaymentQueueLifecycle(t *testing.T) {
	router := newTestRouter(&fakeEvolution{}, &fakeDispatcher{})

	rec, env := do(t, router, http.MethodPost, "/agendamentos?bar_id=2", map[string]any{
		"fornecedor": "Ambev",
		"valor":      "980.40",
		"vencimento": "2025-02-20",
		"categoria":  "bebidas",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var item paymentqueue.Item
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, "980.4", item.Amount.String())

	rec, env = do(t, router, http.MethodPost, "/agendamentos?bar_id=2", map[string]any{"fornecedor": "Ambev", "valor": 0, "vencimento": "2025-02-20", "categoria": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)

	rec, env = do(t, router, http.MethodGet, "/agendamentos?bar_id=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap paymentqueue.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Len(t, snap.Items, 1)

	rec, _ = do(t, router, http.MethodDelete, "/agendamentos/not-a-uuid?bar_id=2", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, http.MethodDelete, "/agendamentos/"+item.ID.String()+"?bar_id=2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, router, http.MethodDelete, "/agendamentos/"+item.ID.String()+"?bar_id=2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error)

	rec, _ = do(t, router, http.MethodDelete, "/agendamentos?bar_id=2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFormatMetricValue(t *testing.T) {
	assert.Equal(t, "R$ 1.234,50", formatMetricValue(reconcile.MetricRevenue, 1234.5))
	assert.Equal(t, "R$ 17,00", formatMetricValue(reconcile.MetricTicket, 17))
	assert.Equal(t, "R$ 1.000.000,00", formatBRL(1000000))
	assert.Equal(t, "7:05", formatMetricValue(reconcile.MetricKitchenTime, 425))
	assert.Equal(t, "42", formatMetricValue(reconcile.MetricAttendance, 42))
}
