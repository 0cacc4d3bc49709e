package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/trackwell/attribution-service/internal/models"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the failure taxonomy onto HTTP statuses. Anything outside
// the taxonomy is a storage-layer failure: callers get a generic 503 and may
// retry reads, while the detail stays in the server log.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	case errors.Is(err, models.ErrDuplicateConversion):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "duplicate_conversion"})
	case errors.Is(err, models.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conflict"})
	case errors.Is(err, models.ErrAttributionExpired):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "attribution_expired"})
	case errors.Is(err, models.ErrInsufficientBalance):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "insufficient_balance"})
	case errors.Is(err, models.ErrNoRateConfigured):
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no_rate_configured"})
	default:
		log.Printf("storage error: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage_unavailable"})
	}
}
