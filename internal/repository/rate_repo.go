package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trackwell/attribution-service/internal/models"
)

type RateRepo struct {
	db *sql.DB
}

func NewRateRepo(db *sql.DB) *RateRepo {
	return &RateRepo{db: db}
}

// ContextForLink loads the layered rate inputs (campaign override, product
// rate, brand default) for one tracking link in a single query.
func (r *RateRepo) ContextForLink(ctx context.Context, linkID uuid.UUID) (*models.RateContext, error) {
	query := `
		SELECT l.id,
		       c.commission_rate,
		       c.status,
		       p.commission_rate,
		       b.default_commission_rate
		FROM tracking_links l
		JOIN products p ON p.id = l.product_id
		JOIN brands b ON b.id = p.brand_id
		LEFT JOIN campaigns c ON c.id = l.campaign_id
		WHERE l.id = $1
	`
	var (
		rc             models.RateContext
		campaignRate   decimal.NullDecimal
		campaignStatus sql.NullString
		productRate    decimal.NullDecimal
		brandRate      decimal.NullDecimal
	)
	err := r.db.QueryRowContext(ctx, query, linkID).Scan(
		&rc.LinkID,
		&campaignRate,
		&campaignStatus,
		&productRate,
		&brandRate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("load rate context: %w", err)
	}
	if campaignRate.Valid {
		rc.CampaignRate = &campaignRate.Decimal
	}
	if campaignStatus.Valid {
		rc.CampaignStatus = models.CampaignStatus(campaignStatus.String)
	}
	if productRate.Valid {
		rc.ProductRate = &productRate.Decimal
	}
	if brandRate.Valid {
		rc.BrandDefaultRate = &brandRate.Decimal
	}
	return &rc, nil
}
