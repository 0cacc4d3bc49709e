package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/trackwell/attribution-service/internal/models"
)

// RateCache is a read-through cache for per-link rate contexts. Rate inputs
// are read-mostly configuration, so a short TTL keeps conversion recording off
// the brands/products/campaigns join for the common case. A miss is never an
// error; callers fall back to the repository.
type RateCache interface {
	Get(ctx context.Context, linkID uuid.UUID) (*models.RateContext, bool)
	Set(ctx context.Context, linkID uuid.UUID, rc *models.RateContext)
}
