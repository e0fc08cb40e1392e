package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"barmetrics-service/internal/queue"
	"barmetrics-service/pkg/response"

	"go.uber.org/zap"
)

type recomputeRequest struct {
	BarID int64  `json:"bar_id" validate:"gt=0"`
	Start string `json:"data_inicio" validate:"required,datetime=2006-01-02"`
	End   string `json:"data_fim" validate:"required,datetime=2006-01-02"`
}

// RecomputeEvents drops a bar's cached series and rebuilds them, through
// the broker when one is configured.
func (h *Handler) RecomputeEvents(w http.ResponseWriter, r *http.Request) {
	var body recomputeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be JSON")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		response.ValidationError(w, "Invalid recompute request", fieldErrors(err))
		return
	}
	window, fields := parseWindow(body.Start, body.End)
	if fields != nil {
		response.ValidationError(w, "Invalid period", fields)
		return
	}

	job := queue.RecomputeJob{BarID: body.BarID, Start: window.Start, End: window.End, RequestedAt: time.Now().UTC()}
	queued, err := h.Recompute.Dispatch(r.Context(), job)
	if err != nil {
		if errors.Is(err, queue.ErrInvalidJob) {
			response.ValidationError(w, err.Error(), nil)
			return
		}
		h.Logger.Error("recompute failed", zap.Int64("barId", body.BarID), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "RECOMPUTE_FAILED", "Failed to recompute metrics")
		return
	}

	data := map[string]any{
		"bar_id":      job.BarID,
		"data_inicio": job.Start,
		"data_fim":    job.End,
		"enfileirado": queued,
	}
	if queued {
		response.Accepted(w, data)
		return
	}
	response.Success(w, data)
}
