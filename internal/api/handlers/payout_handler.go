package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trackwell/attribution-service/internal/models"
	"github.com/trackwell/attribution-service/internal/service"
)

type PayoutServiceAPI interface {
	Request(ctx context.Context, in service.RequestPayoutInput) (*models.Payout, error)
	Balance(ctx context.Context, influencerID uuid.UUID) (models.Balance, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	Cancel(ctx context.Context, id, influencerID uuid.UUID) (*models.Payout, error)
	Advance(ctx context.Context, id uuid.UUID, next models.PayoutStatus, failureReason string) (*models.Payout, error)
}

type PayoutHandler struct {
	svc PayoutServiceAPI
}

func NewPayoutHandler(svc PayoutServiceAPI) *PayoutHandler {
	return &PayoutHandler{svc: svc}
}

type requestPayoutRequest struct {
	InfluencerID   uuid.UUID `json:"influencer_id"`
	Amount         string    `json:"amount"` // decimal string
	Method         string    `json:"method"`
	PaymentDetails string    `json:"payment_details"`
	Notes          string    `json:"notes,omitempty"`
}

// Request handles POST /payouts.
func (h *PayoutHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req requestPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if req.InfluencerID == uuid.Nil || req.Method == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "influencer_id and method required"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
		return
	}

	p, err := h.svc.Request(r.Context(), service.RequestPayoutInput{
		InfluencerID:   req.InfluencerID,
		Amount:         amount,
		Method:         req.Method,
		PaymentDetails: models.Secret(req.PaymentDetails),
		Notes:          req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Balance handles GET /payouts/balance?influencer_id=...
func (h *PayoutHandler) Balance(w http.ResponseWriter, r *http.Request) {
	influencerID, err := uuid.Parse(r.URL.Query().Get("influencer_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "influencer_id required"})
		return
	}
	b, err := h.svc.Balance(r.Context(), influencerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *PayoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type cancelPayoutRequest struct {
	InfluencerID uuid.UUID `json:"influencer_id"`
}

// Cancel handles POST /payouts/{id}/cancel. Only the owning influencer may
// cancel, and only while the payout is still pending.
func (h *PayoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req cancelPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InfluencerID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "influencer_id required"})
		return
	}
	p, err := h.svc.Cancel(r.Context(), id, req.InfluencerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type advancePayoutRequest struct {
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// Advance handles POST /payouts/{id}/advance, the external payment
// processor's lifecycle hook.
func (h *PayoutHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req advancePayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	next := models.PayoutStatus(req.Status)
	switch next {
	case models.PayoutProcessing, models.PayoutCompleted, models.PayoutFailed:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be processing, completed or failed"})
		return
	}
	p, err := h.svc.Advance(r.Context(), id, next, req.FailureReason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
