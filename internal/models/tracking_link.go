package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LinkStatus string

const (
	LinkActive   LinkStatus = "active"
	LinkPaused   LinkStatus = "paused"
	LinkArchived LinkStatus = "archived"
)

// TrackingLink maps an (influencer, product, optional campaign) tuple to a
// short shareable code. Counters are denormalized aggregates bumped atomically
// in SQL on every click and conversion; links are never hard-deleted, only
// status-flipped.
type TrackingLink struct {
	ID            uuid.UUID       `json:"id"`
	InfluencerID  uuid.UUID       `json:"influencer_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	CampaignID    *uuid.UUID      `json:"campaign_id,omitempty"`
	Code          string          `json:"code"`
	Status        LinkStatus      `json:"status"`
	Clicks        int64           `json:"clicks"`
	Conversions   int64           `json:"conversions"`
	TotalSales    decimal.Decimal `json:"total_sales"`
	LastClickedAt *time.Time      `json:"last_clicked_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ClickEvent is one row of the append-only click audit log. Attribution itself
// reads only TrackingLink.LastClickedAt (last-click); the audit log is written
// asynchronously and is advisory.
type ClickEvent struct {
	TrackingLinkID uuid.UUID
	ClickedAt      time.Time
	ClientIP       string
	UserAgent      string
	Referrer       string
}
