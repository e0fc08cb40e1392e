package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"barmetrics-service/internal/paymentqueue"
	"barmetrics-service/pkg/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *Handler) PaymentQueueList(w http.ResponseWriter, r *http.Request) {
	barID, ok := readBarID(w, r)
	if !ok {
		return
	}
	snap, err := h.Payments.List(r.Context(), barID)
	if err != nil {
		h.writePaymentQueueError(w, barID, err)
		return
	}
	response.Success(w, snap)
}

func (h *Handler) PaymentQueueAdd(w http.ResponseWriter, r *http.Request) {
	barID, ok := readBarID(w, r)
	if !ok {
		return
	}
	var body paymentqueue.NewItem
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be JSON")
		return
	}
	item, err := h.Payments.Add(r.Context(), barID, body)
	if err != nil {
		h.writePaymentQueueError(w, barID, err)
		return
	}
	response.Created(w, item)
}

func (h *Handler) PaymentQueueRemove(w http.ResponseWriter, r *http.Request) {
	barID, ok := readBarID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(readPathString(r, "id"))
	if err != nil {
		response.ValidationError(w, "Invalid item id", map[string]string{"id": "uuid"})
		return
	}
	if err := h.Payments.Remove(r.Context(), barID, id); err != nil {
		h.writePaymentQueueError(w, barID, err)
		return
	}
	response.Success(w, map[string]any{"id": id})
}

func (h *Handler) PaymentQueueClear(w http.ResponseWriter, r *http.Request) {
	barID, ok := readBarID(w, r)
	if !ok {
		return
	}
	if err := h.Payments.Clear(r.Context(), barID); err != nil {
		h.writePaymentQueueError(w, barID, err)
		return
	}
	response.Success(w, map[string]any{"items": []paymentqueue.Item{}})
}

func (h *Handler) writePaymentQueueError(w http.ResponseWriter, barID int64, err error) {
	switch {
	case errors.Is(err, paymentqueue.ErrInvalidItem):
		response.ValidationError(w, err.Error(), nil)
	case errors.Is(err, paymentqueue.ErrItemNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Payment item not found")
	case errors.Is(err, paymentqueue.ErrQueueCorrupt):
		h.Logger.Error("payment queue corrupt", zap.Int64("barId", barID), zap.Error(err))
		response.Error(w, http.StatusConflict, "QUEUE_CORRUPT", "Payment queue data is unreadable")
	default:
		h.Logger.Error("payment queue failed", zap.Int64("barId", barID), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update payment queue")
	}
}
