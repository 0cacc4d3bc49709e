package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trackwell/attribution-service/internal/models"
)

type PayoutRepo interface {
	BalanceSummary(ctx context.Context, influencerID uuid.UUID) (models.Balance, error)
	ListAttachable(ctx context.Context, influencerID uuid.UUID) ([]models.ConversionRef, error)
	CreateWithAttachments(ctx context.Context, p *models.Payout, conversionIDs []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	Cancel(ctx context.Context, id, influencerID uuid.UUID, at time.Time) (*models.Payout, error)
	Advance(ctx context.Context, id uuid.UUID, next models.PayoutStatus, failureReason string, at time.Time) (*models.Payout, error)
}

// RequestPayoutInput carries one influencer payout request.
type RequestPayoutInput struct {
	InfluencerID   uuid.UUID
	Amount         decimal.Decimal
	Method         string
	PaymentDetails models.Secret
	Notes          string
}

type PayoutService struct {
	payouts PayoutRepo
}

func NewPayoutService(payouts PayoutRepo) *PayoutService {
	return &PayoutService{payouts: payouts}
}

// Request creates a pending payout backed by the influencer's oldest approved
// conversions. The pre-check here gives a fast answer; the repository
// re-validates balance and attachment under locks at commit time, so losing a
// race surfaces as ErrConflict or ErrInsufficientBalance, never as a double
// spend.
func (s *PayoutService) Request(ctx context.Context, in RequestPayoutInput) (*models.Payout, error) {
	if !in.Amount.IsPositive() {
		return nil, models.ErrInsufficientBalance
	}

	balance, err := s.payouts.BalanceSummary(ctx, in.InfluencerID)
	if err != nil {
		return nil, err
	}
	if in.Amount.GreaterThan(balance.AvailableBalance) {
		return nil, models.ErrInsufficientBalance
	}

	candidates, err := s.payouts.ListAttachable(ctx, in.InfluencerID)
	if err != nil {
		return nil, err
	}
	selected := selectOldestCovering(candidates, in.Amount)

	p := &models.Payout{
		ID:             uuid.New(),
		InfluencerID:   in.InfluencerID,
		Amount:         in.Amount,
		Status:         models.PayoutPending,
		Method:         in.Method,
		PaymentDetails: in.PaymentDetails,
		Notes:          in.Notes,
		RequestedAt:    time.Now().UTC(),
	}
	if err := s.payouts.CreateWithAttachments(ctx, p, selected); err != nil {
		return nil, err
	}
	return p, nil
}

// selectOldestCovering picks the shortest oldest-approved-first prefix whose
// commissions cover the requested amount, so long-pending conversions are
// settled first. When the unattached pool alone cannot cover the amount (an
// earlier payout holds the residual of its batch) every remaining candidate
// is claimed; the monetary balance check still bounds the request.
func selectOldestCovering(candidates []models.ConversionRef, amount decimal.Decimal) []uuid.UUID {
	var (
		ids   []uuid.UUID
		total decimal.Decimal
	)
	for _, c := range candidates {
		ids = append(ids, c.ID)
		total = total.Add(c.CommissionAmount)
		if total.GreaterThanOrEqual(amount) {
			break
		}
	}
	return ids
}

func (s *PayoutService) Balance(ctx context.Context, influencerID uuid.UUID) (models.Balance, error) {
	return s.payouts.BalanceSummary(ctx, influencerID)
}

func (s *PayoutService) Get(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	return s.payouts.GetByID(ctx, id)
}

// Cancel lets the influencer withdraw a still-pending payout, releasing its
// conversions back to the unattached pool.
func (s *PayoutService) Cancel(ctx context.Context, id, influencerID uuid.UUID) (*models.Payout, error) {
	return s.payouts.Cancel(ctx, id, influencerID, time.Now().UTC())
}

// Advance is the hook for the external payment processor:
// pending -> processing -> completed, or -> failed with a reason.
func (s *PayoutService) Advance(ctx context.Context, id uuid.UUID, next models.PayoutStatus, failureReason string) (*models.Payout, error) {
	switch next {
	case models.PayoutProcessing, models.PayoutCompleted, models.PayoutFailed:
	default:
		return nil, models.ErrConflict
	}
	return s.payouts.Advance(ctx, id, next, failureReason, time.Now().UTC())
}
