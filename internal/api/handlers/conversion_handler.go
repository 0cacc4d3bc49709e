package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trackwell/attribution-service/internal/models"
	"github.com/trackwell/attribution-service/internal/service"
)

type ConversionServiceAPI interface {
	Record(ctx context.Context, in service.RecordConversionInput) (*models.Conversion, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Conversion, error)
	Approve(ctx context.Context, id uuid.UUID) (*models.Conversion, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*models.Conversion, error)
}

type ConversionHandler struct {
	svc ConversionServiceAPI
}

func NewConversionHandler(svc ConversionServiceAPI) *ConversionHandler {
	return &ConversionHandler{svc: svc}
}

type recordConversionRequest struct {
	Code       string `json:"code"`
	OrderID    string `json:"order_id"`
	OrderValue string `json:"order_value"` // decimal string, never a float
	OccurredAt string `json:"occurred_at"` // RFC3339; defaults to now
}

// Record handles the brand-integration ingestion endpoint POST /conversions.
// A repeated order returns 409 with the conversion that already exists, so
// integrations retrying a delivery can reconcile instead of guessing.
func (h *ConversionHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordConversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if req.Code == "" || req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code and order_id required"})
		return
	}
	orderValue, err := decimal.NewFromString(req.OrderValue)
	if err != nil || orderValue.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_value"})
		return
	}
	occurredAt := time.Now().UTC()
	if req.OccurredAt != "" {
		occurredAt, err = time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid occurred_at; use RFC3339"})
			return
		}
	}

	conv, err := h.svc.Record(r.Context(), service.RecordConversionInput{
		Code:       req.Code,
		OrderID:    req.OrderID,
		OrderValue: orderValue,
		OccurredAt: occurredAt,
	})
	if err != nil {
		if errors.Is(err, models.ErrDuplicateConversion) && conv != nil {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":      "duplicate_conversion",
				"conversion": conv,
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (h *ConversionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	conv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Approve handles POST /conversions/{id}/approve (brand/admin action).
func (h *ConversionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	conv, err := h.svc.Approve(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /conversions/{id}/reject. REJECTED is terminal.
func (h *ConversionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req rejectRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
			return
		}
	}
	conv, err := h.svc.Reject(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}
