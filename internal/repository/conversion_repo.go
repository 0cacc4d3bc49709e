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

type ConversionRepo struct {
	db *sql.DB
}

func NewConversionRepo(db *sql.DB) *ConversionRepo {
	return &ConversionRepo{db: db}
}

const conversionColumns = `id, tracking_link_id, influencer_id, order_id, order_value,
	commission_rate, commission_amount, status, occurred_at,
	approved_at, rejected_at, paid_at, rejection_reason, created_at, updated_at`

func scanConversion(row interface{ Scan(...interface{}) error }) (*models.Conversion, error) {
	var (
		c          models.Conversion
		approvedAt sql.NullTime
		rejectedAt sql.NullTime
		paidAt     sql.NullTime
		reason     sql.NullString
	)
	err := row.Scan(
		&c.ID,
		&c.TrackingLinkID,
		&c.InfluencerID,
		&c.OrderID,
		&c.OrderValue,
		&c.CommissionRate,
		&c.CommissionAmount,
		&c.Status,
		&c.OccurredAt,
		&approvedAt,
		&rejectedAt,
		&paidAt,
		&reason,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		c.ApprovedAt = &t
	}
	if rejectedAt.Valid {
		t := rejectedAt.Time
		c.RejectedAt = &t
	}
	if paidAt.Valid {
		t := paidAt.Time
		c.PaidAt = &t
	}
	c.RejectionReason = reason.String
	return &c, nil
}

// Create persists the conversion and bumps the link's conversion counter and
// total_sales in the same transaction. A duplicate (tracking_link_id, order_id)
// trips the unique index; the already-persisted row is returned alongside
// ErrDuplicateConversion so the caller can report it unchanged. Relying on the
// index rather than a prior lookup closes the race between two simultaneous
// postings of the same order.
func (r *ConversionRepo) Create(ctx context.Context, conv *models.Conversion) (*models.Conversion, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	insert := `
		INSERT INTO conversions
			(id, tracking_link_id, influencer_id, order_id, order_value,
			 commission_rate, commission_amount, status, occurred_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, insert,
		conv.ID, conv.TrackingLinkID, conv.InfluencerID, conv.OrderID, conv.OrderValue,
		conv.CommissionRate, conv.CommissionAmount, conv.Status, conv.OccurredAt,
	).Scan(&conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			_ = tx.Rollback()
			existing, getErr := r.getByOrder(ctx, conv.TrackingLinkID, conv.OrderID)
			if getErr != nil {
				return nil, getErr
			}
			return existing, models.ErrDuplicateConversion
		}
		return nil, fmt.Errorf("insert conversion: %w", err)
	}

	bump := `
		UPDATE tracking_links
		SET conversions = conversions + 1,
		    total_sales = total_sales + $2,
		    updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, bump, conv.TrackingLinkID, conv.OrderValue); err != nil {
		return nil, fmt.Errorf("bump link counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit conversion: %w", err)
	}
	committed = true
	return conv, nil
}

func (r *ConversionRepo) getByOrder(ctx context.Context, linkID uuid.UUID, orderID string) (*models.Conversion, error) {
	query := `SELECT ` + conversionColumns + ` FROM conversions
		WHERE tracking_link_id = $1 AND order_id = $2`
	conv, err := scanConversion(r.db.QueryRowContext(ctx, query, linkID, orderID))
	if err != nil {
		return nil, fmt.Errorf("get conversion by order: %w", err)
	}
	return conv, nil
}

func (r *ConversionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversion, error) {
	query := `SELECT ` + conversionColumns + ` FROM conversions WHERE id = $1`
	conv, err := scanConversion(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get conversion: %w", err)
	}
	return conv, nil
}

// Approve moves PENDING -> APPROVED under a row lock. Any other starting
// status loses: REJECTED is terminal and re-approving is a conflict.
func (r *ConversionRepo) Approve(ctx context.Context, id uuid.UUID, at time.Time) (*models.Conversion, error) {
	return r.transition(ctx, id, models.ConversionApproved, "", at)
}

// Reject moves PENDING -> REJECTED (terminal) under a row lock.
func (r *ConversionRepo) Reject(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*models.Conversion, error) {
	return r.transition(ctx, id, models.ConversionRejected, reason, at)
}

func (r *ConversionRepo) transition(ctx context.Context, id uuid.UUID, to models.ConversionStatus, reason string, at time.Time) (*models.Conversion, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var status models.ConversionStatus
	lock := `SELECT status FROM conversions WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, lock, id).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("lock conversion: %w", err)
	}
	if status != models.ConversionPending {
		return nil, models.ErrConflict
	}

	var update string
	switch to {
	case models.ConversionApproved:
		update = `UPDATE conversions SET status = 'APPROVED', approved_at = $2, updated_at = NOW()
			WHERE id = $1 RETURNING ` + conversionColumns
	case models.ConversionRejected:
		update = `UPDATE conversions SET status = 'REJECTED', rejected_at = $2, rejection_reason = $3, updated_at = NOW()
			WHERE id = $1 RETURNING ` + conversionColumns
	default:
		return nil, models.ErrConflict
	}

	var conv *models.Conversion
	if to == models.ConversionRejected {
		conv, err = scanConversion(tx.QueryRowContext(ctx, update, id, at, reason))
	} else {
		conv, err = scanConversion(tx.QueryRowContext(ctx, update, id, at))
	}
	if err != nil {
		return nil, fmt.Errorf("update conversion status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status change: %w", err)
	}
	committed = true
	return conv, nil
}
