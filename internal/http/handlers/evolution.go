package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"barmetrics-service/internal/evolution"
	"barmetrics-service/internal/reconcile"
	"barmetrics-service/pkg/response"

	"go.uber.org/zap"
)

type evolutionQuery struct {
	BarID  int64  `json:"bar_id" validate:"gt=0"`
	Metric string `json:"metrica" validate:"required"`
	Start  string `json:"data_inicio" validate:"omitempty,datetime=2006-01-02"`
	End    string `json:"data_fim" validate:"omitempty,datetime=2006-01-02"`
}

// parseEvolutionRequest validates the query and writes a 400 on failure.
func (h *Handler) parseEvolutionRequest(w http.ResponseWriter, r *http.Request) (evolution.Request, bool) {
	q := r.URL.Query()
	barID, _ := strconv.ParseInt(strings.TrimSpace(q.Get("bar_id")), 10, 64)
	query := evolutionQuery{
		BarID:  barID,
		Metric: strings.ToLower(strings.TrimSpace(q.Get("metrica"))),
		Start:  strings.TrimSpace(q.Get("data_inicio")),
		End:    strings.TrimSpace(q.Get("data_fim")),
	}
	if err := h.validate.Struct(query); err != nil {
		response.ValidationError(w, "Invalid evolution query", fieldErrors(err))
		return evolution.Request{}, false
	}

	metric, err := reconcile.ParseMetric(query.Metric)
	if err != nil {
		response.ValidationError(w, "Unknown metric", map[string]string{"metrica": "oneof"})
		return evolution.Request{}, false
	}
	start, end := h.defaultWindow(query.Start, query.End)
	window, fields := parseWindow(start, end)
	if fields != nil {
		response.ValidationError(w, "Invalid period", fields)
		return evolution.Request{}, false
	}
	return evolution.Request{BarID: query.BarID, Metric: metric, Start: window.Start, End: window.End}, true
}

func (h *Handler) MetricEvolution(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseEvolutionRequest(w, r)
	if !ok {
		return
	}

	res, err := h.Evolution.Evolution(r.Context(), req)
	if err != nil {
		h.writeEvolutionError(w, req, err)
		return
	}
	response.Success(w, res.Payload())
}

func (h *Handler) MetricEvolutionPDF(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseEvolutionRequest(w, r)
	if !ok {
		return
	}

	res, err := h.Evolution.Evolution(r.Context(), req)
	if err != nil {
		h.writeEvolutionError(w, req, err)
		return
	}

	buf, err := renderEvolutionPDF(req.BarID, res.Payload())
	if err != nil {
		h.Logger.Error("evolution pdf failed", zap.Int64("barId", req.BarID), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate report")
		return
	}

	filename := fmt.Sprintf("evolucao_%d_%s_%s_%s.pdf", req.BarID, req.Metric, res.Period.Effective.Start, res.Period.Effective.End)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) writeEvolutionError(w http.ResponseWriter, req evolution.Request, err error) {
	switch {
	case errors.Is(err, reconcile.ErrUnknownMetric):
		response.ValidationError(w, "Unknown metric", map[string]string{"metrica": "oneof"})
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		h.Logger.Error("evolution failed",
			zap.Int64("barId", req.BarID),
			zap.String("metric", string(req.Metric)),
			zap.Error(err),
		)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build metric series")
	}
}

func (h *Handler) GoalConfig(w http.ResponseWriter, r *http.Request) {
	barID, ok := readBarID(w, r)
	if !ok {
		return
	}
	goals, err := h.Goals.Load(r.Context(), barID)
	if err != nil {
		h.Logger.Error("goal load failed", zap.Int64("barId", barID), zap.Error(err))
		response.Error(w, http.StatusServiceUnavailable, "GOALS_UNAVAILABLE", "Failed to load goals")
		return
	}
	goals.BarID = barID
	response.Success(w, goals)
}
