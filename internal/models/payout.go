package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
	PayoutCancelled  PayoutStatus = "cancelled"
)

// Live reports whether the payout still holds a claim on its attached
// conversions. Cancelled and failed payouts release them.
func (s PayoutStatus) Live() bool {
	return s == PayoutPending || s == PayoutProcessing || s == PayoutCompleted
}

// Payout settles a batch of approved conversions. The attached conversion set
// never overlaps another live payout's set; cancellation (pending only) and
// failure release the set back to the unattached pool.
type Payout struct {
	ID             uuid.UUID       `json:"id"`
	InfluencerID   uuid.UUID       `json:"influencer_id"`
	Amount         decimal.Decimal `json:"amount"`
	Status         PayoutStatus    `json:"status"`
	Method         string          `json:"method"`
	PaymentDetails Secret          `json:"payment_details"`
	Notes          string          `json:"notes,omitempty"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	ConversionIDs  []uuid.UUID     `json:"conversion_ids"`
	RequestedAt    time.Time       `json:"requested_at"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Balance is the influencer-facing money summary.
type Balance struct {
	AvailableBalance        decimal.Decimal `json:"available_balance"`
	PendingConversionsTotal decimal.Decimal `json:"pending_conversions_total"`
	PaidTotal               decimal.Decimal `json:"paid_total"`
	TotalApproved           decimal.Decimal `json:"total_approved"`
}
