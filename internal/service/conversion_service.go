package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trackwell/attribution-service/internal/cache"
	"github.com/trackwell/attribution-service/internal/models"
)

type ConversionRepo interface {
	Create(ctx context.Context, conv *models.Conversion) (*models.Conversion, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversion, error)
	Approve(ctx context.Context, id uuid.UUID, at time.Time) (*models.Conversion, error)
	Reject(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*models.Conversion, error)
}

type RateRepo interface {
	ContextForLink(ctx context.Context, linkID uuid.UUID) (*models.RateContext, error)
}

// RecordConversionInput is one incoming conversion event from a brand
// integration.
type RecordConversionInput struct {
	Code       string
	OrderID    string
	OrderValue decimal.Decimal
	OccurredAt time.Time
}

type ConversionService struct {
	links       LinkRepo
	conversions ConversionRepo
	rates       RateRepo
	rateCache   cache.RateCache
	window      time.Duration
}

func NewConversionService(links LinkRepo, conversions ConversionRepo, rates RateRepo, rateCache cache.RateCache, window time.Duration) *ConversionService {
	return &ConversionService{
		links:       links,
		conversions: conversions,
		rates:       rates,
		rateCache:   rateCache,
		window:      window,
	}
}

// Record attributes an order to the tracking link's most recent click
// (last-click attribution) and persists the commission at the rate in force
// right now. A conversion landing exactly on the window edge is accepted; one
// second past it is stale. A repeat of the same (link, order) pair returns the
// already-persisted conversion together with ErrDuplicateConversion — callers
// see an explicit 409, never a silently doubled commission.
func (s *ConversionService) Record(ctx context.Context, in RecordConversionInput) (*models.Conversion, error) {
	link, err := s.links.GetByCode(ctx, in.Code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, models.ErrNotFound
	}

	if link.LastClickedAt == nil {
		// No click was ever attributed; nothing to anchor the window on.
		return nil, models.ErrAttributionExpired
	}
	if in.OccurredAt.Sub(*link.LastClickedAt) > s.window {
		return nil, models.ErrAttributionExpired
	}

	rate, err := s.resolveRate(ctx, link.ID)
	if err != nil {
		return nil, err
	}

	conv := &models.Conversion{
		ID:               uuid.New(),
		TrackingLinkID:   link.ID,
		InfluencerID:     link.InfluencerID,
		OrderID:          in.OrderID,
		OrderValue:       in.OrderValue,
		CommissionRate:   rate,
		CommissionAmount: CommissionAmount(in.OrderValue, rate),
		Status:           models.ConversionPending,
		OccurredAt:       in.OccurredAt,
	}
	return s.conversions.Create(ctx, conv)
}

func (s *ConversionService) resolveRate(ctx context.Context, linkID uuid.UUID) (decimal.Decimal, error) {
	rc, ok := s.rateCache.Get(ctx, linkID)
	if !ok {
		loaded, err := s.rates.ContextForLink(ctx, linkID)
		if err != nil {
			return decimal.Zero, err
		}
		s.rateCache.Set(ctx, linkID, loaded)
		rc = loaded
	}
	return ResolveRate(rc)
}

func (s *ConversionService) Get(ctx context.Context, id uuid.UUID) (*models.Conversion, error) {
	return s.conversions.GetByID(ctx, id)
}

func (s *ConversionService) Approve(ctx context.Context, id uuid.UUID) (*models.Conversion, error) {
	return s.conversions.Approve(ctx, id, time.Now().UTC())
}

func (s *ConversionService) Reject(ctx context.Context, id uuid.UUID, reason string) (*models.Conversion, error) {
	return s.conversions.Reject(ctx, id, reason, time.Now().UTC())
}

// CommissionAmount is orderValue x rate rounded to cents, half-up.
func CommissionAmount(orderValue, rate decimal.Decimal) decimal.Decimal {
	return orderValue.Mul(rate).Round(2)
}
