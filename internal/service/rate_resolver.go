package service

import (
	"github.com/shopspring/decimal"

	"github.com/trackwell/attribution-service/internal/models"
)

// platformDefaultRate applies when a brand never configured a default.
var platformDefaultRate = decimal.RequireFromString("0.10")

// ResolveRate computes the effective commission rate for a conversion
// context. Precedence: active campaign override, then product rate, then
// brand default, then the platform default. Pure and deterministic, so a
// conversion's snapshotted rate can be recomputed for audits from the same
// inputs.
func ResolveRate(rc *models.RateContext) (decimal.Decimal, error) {
	if rc == nil {
		return decimal.Zero, models.ErrNoRateConfigured
	}
	if rc.CampaignRate != nil && rc.CampaignStatus == models.CampaignActive {
		return *rc.CampaignRate, nil
	}
	if rc.ProductRate != nil {
		return *rc.ProductRate, nil
	}
	if rc.BrandDefaultRate != nil {
		return *rc.BrandDefaultRate, nil
	}
	return platformDefaultRate, nil
}
