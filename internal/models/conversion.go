package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ConversionStatus string

const (
	ConversionPending  ConversionStatus = "PENDING"
	ConversionApproved ConversionStatus = "APPROVED"
	ConversionRejected ConversionStatus = "REJECTED"
	ConversionPaid     ConversionStatus = "PAID"
)

// ConversionRef is the slice of a conversion the payout selection policy
// works over.
type ConversionRef struct {
	ID               uuid.UUID
	CommissionAmount decimal.Decimal
	ApprovedAt       time.Time
}

// Conversion is an attributed order. CommissionRate is snapshotted at record
// time (never recomputed later) and CommissionAmount is derived from it once;
// after insert only Status and its timestamp fields may change.
type Conversion struct {
	ID               uuid.UUID        `json:"id"`
	TrackingLinkID   uuid.UUID        `json:"tracking_link_id"`
	InfluencerID     uuid.UUID        `json:"influencer_id"`
	OrderID          string           `json:"order_id"`
	OrderValue       decimal.Decimal  `json:"order_value"`
	CommissionRate   decimal.Decimal  `json:"commission_rate"`
	CommissionAmount decimal.Decimal  `json:"commission_amount"`
	Status           ConversionStatus `json:"status"`
	OccurredAt       time.Time        `json:"occurred_at"`
	ApprovedAt       *time.Time       `json:"approved_at,omitempty"`
	RejectedAt       *time.Time       `json:"rejected_at,omitempty"`
	PaidAt           *time.Time       `json:"paid_at,omitempty"`
	RejectionReason  string           `json:"rejection_reason,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
