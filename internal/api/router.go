package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/trackwell/attribution-service/internal/api/handlers"
	"github.com/trackwell/attribution-service/internal/api/middleware"
)

// NewRouter builds the HTTP router for the attribution service.
func NewRouter(tracking handlers.TrackingServiceAPI, conversions handlers.ConversionServiceAPI, payouts handlers.PayoutServiceAPI) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger)

	trackingHandler := handlers.NewTrackingHandler(tracking)
	conversionHandler := handlers.NewConversionHandler(conversions)
	payoutHandler := handlers.NewPayoutHandler(payouts)

	// Public click endpoints
	r.Get("/track/{code}", trackingHandler.Redirect)
	r.Post("/tracking/{code}/click", trackingHandler.Click)

	// Influencer link management
	r.Route("/links", func(r chi.Router) {
		r.Post("/", trackingHandler.CreateLink)
		r.Get("/{code}", trackingHandler.GetLink)
	})

	// Brand-integration ingestion + moderation
	r.Route("/conversions", func(r chi.Router) {
		r.Post("/", conversionHandler.Record)
		r.Get("/{id}", conversionHandler.Get)
		r.Post("/{id}/approve", conversionHandler.Approve)
		r.Post("/{id}/reject", conversionHandler.Reject)
	})

	r.Route("/payouts", func(r chi.Router) {
		r.Post("/", payoutHandler.Request)
		r.Get("/balance", payoutHandler.Balance)
		r.Get("/{id}", payoutHandler.Get)
		r.Post("/{id}/cancel", payoutHandler.Cancel)
		r.Post("/{id}/advance", payoutHandler.Advance)
	})

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
