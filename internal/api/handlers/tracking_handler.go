package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/trackwell/attribution-service/internal/models"
	"github.com/trackwell/attribution-service/internal/service"
)

type TrackingServiceAPI interface {
	RecordClick(ctx context.Context, code string, meta service.ClickMeta) (string, error)
	CreateLink(ctx context.Context, influencerID, productID uuid.UUID, campaignID *uuid.UUID) (*models.TrackingLink, error)
	GetLink(ctx context.Context, code string) (*models.TrackingLink, error)
}

type TrackingHandler struct {
	svc TrackingServiceAPI
}

func NewTrackingHandler(svc TrackingServiceAPI) *TrackingHandler {
	return &TrackingHandler{svc: svc}
}

type createLinkRequest struct {
	InfluencerID uuid.UUID  `json:"influencer_id"`
	ProductID    uuid.UUID  `json:"product_id"`
	CampaignID   *uuid.UUID `json:"campaign_id,omitempty"`
}

type clickResponse struct {
	RedirectURL string `json:"redirect_url"`
}

func clickMeta(r *http.Request) service.ClickMeta {
	return service.ClickMeta{
		ClientIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}
}

// Redirect handles GET /track/{code}: count the click and 302 to the product.
func (h *TrackingHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	url, err := h.svc.RecordClick(r.Context(), code, clickMeta(r))
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// Click handles POST /tracking/{code}/click, used by the front-end redirect
// page instead of a server-side redirect.
func (h *TrackingHandler) Click(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	url, err := h.svc.RecordClick(r.Context(), code, clickMeta(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clickResponse{RedirectURL: url})
}

// CreateLink handles POST /links.
func (h *TrackingHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if req.InfluencerID == uuid.Nil || req.ProductID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "influencer_id and product_id required"})
		return
	}
	link, err := h.svc.CreateLink(r.Context(), req.InfluencerID, req.ProductID, req.CampaignID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// GetLink handles GET /links/{code}.
func (h *TrackingHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.GetLink(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}
