package service

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/trackwell/attribution-service/internal/models"
)

func rate(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestResolveRatePrecedence(t *testing.T) {
	tests := []struct {
		name string
		rc   models.RateContext
		want string
	}{
		{
			name: "active campaign wins over product and brand",
			rc: models.RateContext{
				CampaignRate:     rate("0.20"),
				CampaignStatus:   models.CampaignActive,
				ProductRate:      rate("0.10"),
				BrandDefaultRate: rate("0.08"),
			},
			want: "0.20",
		},
		{
			name: "ended campaign falls through to product",
			rc: models.RateContext{
				CampaignRate:     rate("0.20"),
				CampaignStatus:   models.CampaignEnded,
				ProductRate:      rate("0.10"),
				BrandDefaultRate: rate("0.08"),
			},
			want: "0.10",
		},
		{
			name: "no campaign uses product rate",
			rc: models.RateContext{
				ProductRate:      rate("0.10"),
				BrandDefaultRate: rate("0.08"),
			},
			want: "0.10",
		},
		{
			name: "no product rate uses brand default",
			rc: models.RateContext{
				BrandDefaultRate: rate("0.08"),
			},
			want: "0.08",
		},
		{
			name: "nothing configured uses platform default",
			rc:   models.RateContext{},
			want: "0.10",
		},
		{
			name: "campaign rate without status does not apply",
			rc: models.RateContext{
				CampaignRate:     rate("0.20"),
				BrandDefaultRate: rate("0.08"),
			},
			want: "0.08",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveRate(&tt.rc)
			if err != nil {
				t.Fatalf("ResolveRate error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("ResolveRate = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveRateNilContext(t *testing.T) {
	if _, err := ResolveRate(nil); err != models.ErrNoRateConfigured {
		t.Fatalf("expected ErrNoRateConfigured, got %v", err)
	}
}

// ResolveRate must be deterministic so snapshotted commissions can be
// recomputed for audits.
func TestResolveRateDeterministic(t *testing.T) {
	rc := &models.RateContext{
		CampaignRate:   rate("0.15"),
		CampaignStatus: models.CampaignActive,
	}
	first, _ := ResolveRate(rc)
	for i := 0; i < 10; i++ {
		again, _ := ResolveRate(rc)
		if !again.Equal(first) {
			t.Fatalf("resolution changed between calls: %s vs %s", first, again)
		}
	}
}
