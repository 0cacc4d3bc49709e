package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trackwell/attribution-service/internal/models"
)

type LinkRepo struct {
	db *sql.DB
}

func NewLinkRepo(db *sql.DB) *LinkRepo {
	return &LinkRepo{db: db}
}

const linkColumns = `id, influencer_id, product_id, campaign_id, code, status,
	clicks, conversions, total_sales, last_clicked_at, created_at, updated_at`

func scanLink(row interface{ Scan(...interface{}) error }) (*models.TrackingLink, error) {
	var (
		l          models.TrackingLink
		campaignID uuid.NullUUID
		lastClick  sql.NullTime
	)
	err := row.Scan(
		&l.ID,
		&l.InfluencerID,
		&l.ProductID,
		&campaignID,
		&l.Code,
		&l.Status,
		&l.Clicks,
		&l.Conversions,
		&l.TotalSales,
		&lastClick,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if campaignID.Valid {
		l.CampaignID = &campaignID.UUID
	}
	if lastClick.Valid {
		t := lastClick.Time
		l.LastClickedAt = &t
	}
	return &l, nil
}

func (r *LinkRepo) Create(ctx context.Context, link *models.TrackingLink) error {
	query := `
		INSERT INTO tracking_links
			(id, influencer_id, product_id, campaign_id, code, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	var campaignID uuid.NullUUID
	if link.CampaignID != nil {
		campaignID = uuid.NullUUID{UUID: *link.CampaignID, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, query,
		link.ID, link.InfluencerID, link.ProductID, campaignID, link.Code, link.Status,
	).Scan(&link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return models.ErrNotFound
		}
		return fmt.Errorf("insert tracking link: %w", err)
	}
	return nil
}

// GetByCode returns (nil, nil) when no link carries the code.
func (r *LinkRepo) GetByCode(ctx context.Context, code string) (*models.TrackingLink, error) {
	query := `SELECT ` + linkColumns + ` FROM tracking_links WHERE code = $1`
	link, err := scanLink(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get link by code: %w", err)
	}
	return link, nil
}

// RecordClick bumps the click counter and last-click timestamp in a single
// atomic statement and resolves the redirect target in the same round trip.
// Concurrent clicks on one code can never lose counts this way. Returns the
// link id for the audit trail and the product URL to redirect to.
func (r *LinkRepo) RecordClick(ctx context.Context, code string, at time.Time) (uuid.UUID, string, error) {
	query := `
		UPDATE tracking_links l
		SET clicks = l.clicks + 1,
		    last_clicked_at = $2,
		    updated_at = NOW()
		FROM products p
		WHERE l.code = $1
		  AND l.status = 'active'
		  AND p.id = l.product_id
		RETURNING l.id, p.product_url
	`
	var (
		linkID uuid.UUID
		url    string
	)
	err := r.db.QueryRowContext(ctx, query, code, at).Scan(&linkID, &url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, "", models.ErrNotFound
		}
		return uuid.Nil, "", fmt.Errorf("record click: %w", err)
	}
	return linkID, url, nil
}

// InsertClickEvent appends one audit row. Called from the click worker pool,
// never from the request path.
func (r *LinkRepo) InsertClickEvent(ctx context.Context, ev models.ClickEvent) error {
	query := `
		INSERT INTO click_events (tracking_link_id, clicked_at, client_ip, user_agent, referrer)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		ev.TrackingLinkID, ev.ClickedAt, ev.ClientIP, ev.UserAgent, ev.Referrer)
	if err != nil {
		return fmt.Errorf("insert click event: %w", err)
	}
	return nil
}
