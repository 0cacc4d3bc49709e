package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CampaignStatus string

const (
	CampaignActive CampaignStatus = "active"
	CampaignEnded  CampaignStatus = "ended"
)

// RateContext carries the layered commission-rate inputs for one tracking
// link: campaign override (if the link has one), product rate, brand default.
// All rates are fractions in [0,1]; nil means "not set at this layer".
type RateContext struct {
	LinkID uuid.UUID

	CampaignRate   *decimal.Decimal
	CampaignStatus CampaignStatus

	ProductRate *decimal.Decimal

	BrandDefaultRate *decimal.Decimal
}
