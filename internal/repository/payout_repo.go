package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/trackwell/attribution-service/internal/models"
)

type PayoutRepo struct {
	db *sql.DB
}

func NewPayoutRepo(db *sql.DB) *PayoutRepo {
	return &PayoutRepo{db: db}
}

// attachableFilter selects APPROVED conversions not claimed by any live
// payout. Cancelled and failed payouts have had their join rows deleted, so
// "claimed" is simply membership in payout_conversions.
const attachableFilter = `
	c.influencer_id = $1
	AND c.status = 'APPROVED'
	AND NOT EXISTS (
		SELECT 1 FROM payout_conversions pc WHERE pc.conversion_id = c.id
	)`

// ListAttachable returns the influencer's attachable conversions
// oldest-approved-first, the order the selection policy consumes them in.
func (r *PayoutRepo) ListAttachable(ctx context.Context, influencerID uuid.UUID) ([]models.ConversionRef, error) {
	query := `
		SELECT c.id, c.commission_amount, c.approved_at
		FROM conversions c
		WHERE ` + attachableFilter + `
		ORDER BY c.approved_at ASC, c.created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, influencerID)
	if err != nil {
		return nil, fmt.Errorf("list attachable conversions: %w", err)
	}
	defer rows.Close()

	var refs []models.ConversionRef
	for rows.Next() {
		var ref models.ConversionRef
		if err := rows.Scan(&ref.ID, &ref.CommissionAmount, &ref.ApprovedAt); err != nil {
			return nil, fmt.Errorf("scan attachable conversion: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

const availableQuery = `
	SELECT
		COALESCE((SELECT SUM(commission_amount) FROM conversions
			WHERE influencer_id = $1 AND status IN ('APPROVED', 'PAID')), 0)
		-
		COALESCE((SELECT SUM(amount) FROM payouts
			WHERE influencer_id = $1 AND status IN ('pending', 'processing', 'completed')), 0)
`

// BalanceSummary computes the influencer money summary in one round trip.
// Available balance is earned commission (approved or already settled) minus
// everything a live payout has claimed, so creating a payout of X lowers it
// by exactly X and cancelling one restores exactly X.
func (r *PayoutRepo) BalanceSummary(ctx context.Context, influencerID uuid.UUID) (models.Balance, error) {
	query := `
		SELECT
			(` + availableQuery + `) AS available,
			COALESCE((SELECT SUM(commission_amount) FROM conversions
				WHERE influencer_id = $1 AND status = 'PENDING'), 0) AS pending_total,
			COALESCE((SELECT SUM(amount) FROM payouts
				WHERE influencer_id = $1 AND status = 'completed'), 0) AS paid_total,
			COALESCE((SELECT SUM(commission_amount) FROM conversions
				WHERE influencer_id = $1 AND status = 'APPROVED'), 0) AS total_approved
	`
	var b models.Balance
	err := r.db.QueryRowContext(ctx, query, influencerID).Scan(
		&b.AvailableBalance,
		&b.PendingConversionsTotal,
		&b.PaidTotal,
		&b.TotalApproved,
	)
	if err != nil {
		return models.Balance{}, fmt.Errorf("balance summary: %w", err)
	}
	return b, nil
}

// CreateWithAttachments persists the payout and claims the given conversions
// inside a single serializable transaction. The chosen rows are re-locked and
// the balance re-validated at commit time, so two concurrent requests for the
// same influencer cannot double-spend a conversion: the loser surfaces
// ErrConflict (via the conversion_id uniqueness or a serialization abort) or
// ErrInsufficientBalance.
func (r *PayoutRepo) CreateWithAttachments(ctx context.Context, p *models.Payout, conversionIDs []uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Re-lock the selection and confirm every row is still attachable.
	if len(conversionIDs) > 0 {
		lock := `
			SELECT c.id
			FROM conversions c
			WHERE c.id = ANY($2) AND ` + attachableFilter + `
			FOR UPDATE OF c
		`
		rows, err := tx.QueryContext(ctx, lock, p.InfluencerID, pq.Array(conversionIDs))
		if err != nil {
			return fmt.Errorf("lock conversions: %w", err)
		}
		locked := 0
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan locked conversion: %w", err)
			}
			locked++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("lock conversions: %w", err)
		}
		if locked != len(conversionIDs) {
			return models.ErrConflict
		}
	}

	// Re-validate available balance with the rows held.
	var available models.Balance
	if err := tx.QueryRowContext(ctx, availableQuery, p.InfluencerID).Scan(&available.AvailableBalance); err != nil {
		return fmt.Errorf("revalidate balance: %w", err)
	}
	if p.Amount.GreaterThan(available.AvailableBalance) {
		return models.ErrInsufficientBalance
	}

	insert := `
		INSERT INTO payouts
			(id, influencer_id, amount, status, method, payment_details, notes, requested_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, insert,
		p.ID, p.InfluencerID, p.Amount, p.Status, p.Method, p.PaymentDetails, p.Notes, p.RequestedAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}

	for _, cid := range conversionIDs {
		attach := `INSERT INTO payout_conversions (payout_id, conversion_id) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, attach, p.ID, cid); err != nil {
			if isUniqueViolation(err) {
				return models.ErrConflict
			}
			return fmt.Errorf("attach conversion: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("commit payout: %w", err)
	}
	committed = true
	p.ConversionIDs = conversionIDs
	return nil
}

const payoutColumns = `id, influencer_id, amount, status, method, payment_details,
	notes, failure_reason, requested_at, processed_at, completed_at, cancelled_at,
	created_at, updated_at`

func scanPayout(row interface{ Scan(...interface{}) error }) (*models.Payout, error) {
	var (
		p             models.Payout
		notes         sql.NullString
		failureReason sql.NullString
		processedAt   sql.NullTime
		completedAt   sql.NullTime
		cancelledAt   sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.InfluencerID,
		&p.Amount,
		&p.Status,
		&p.Method,
		&p.PaymentDetails,
		&notes,
		&failureReason,
		&p.RequestedAt,
		&processedAt,
		&completedAt,
		&cancelledAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Notes = notes.String
	p.FailureReason = failureReason.String
	if processedAt.Valid {
		t := processedAt.Time
		p.ProcessedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		p.CompletedAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		p.CancelledAt = &t
	}
	return &p, nil
}

func (r *PayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE id = $1`
	p, err := scanPayout(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get payout: %w", err)
	}
	if p.ConversionIDs, err = r.conversionIDs(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PayoutRepo) conversionIDs(ctx context.Context, payoutID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT conversion_id FROM payout_conversions WHERE payout_id = $1`, payoutID)
	if err != nil {
		return nil, fmt.Errorf("list payout conversions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan payout conversion: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Cancel releases a pending payout owned by the influencer and returns its
// conversions to the unattached pool. Non-pending payouts cannot be cancelled
// by the influencer.
func (r *PayoutRepo) Cancel(ctx context.Context, id, influencerID uuid.UUID, at time.Time) (*models.Payout, error) {
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

	var (
		owner  uuid.UUID
		status models.PayoutStatus
	)
	lock := `SELECT influencer_id, status FROM payouts WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, lock, id).Scan(&owner, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("lock payout: %w", err)
	}
	if owner != influencerID {
		return nil, models.ErrNotFound
	}
	if status != models.PayoutPending {
		return nil, models.ErrConflict
	}

	update := `UPDATE payouts SET status = 'cancelled', cancelled_at = $2, updated_at = NOW()
		WHERE id = $1 RETURNING ` + payoutColumns
	p, err := scanPayout(tx.QueryRowContext(ctx, update, id, at))
	if err != nil {
		return nil, fmt.Errorf("cancel payout: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM payout_conversions WHERE payout_id = $1`, id); err != nil {
		return nil, fmt.Errorf("release conversions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}
	committed = true
	return p, nil
}

// Advance drives the external payout lifecycle:
// pending -> processing -> completed, or pending/processing -> failed.
// Completion marks the attached conversions PAID; failure releases them.
func (r *PayoutRepo) Advance(ctx context.Context, id uuid.UUID, next models.PayoutStatus, failureReason string, at time.Time) (*models.Payout, error) {
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

	var status models.PayoutStatus
	lock := `SELECT status FROM payouts WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, lock, id).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("lock payout: %w", err)
	}
	if !validAdvance(status, next) {
		return nil, models.ErrConflict
	}

	var update string
	args := []interface{}{id, at}
	switch next {
	case models.PayoutProcessing:
		update = `UPDATE payouts SET status = 'processing', processed_at = $2, updated_at = NOW()
			WHERE id = $1 RETURNING ` + payoutColumns
	case models.PayoutCompleted:
		update = `UPDATE payouts SET status = 'completed', completed_at = $2, updated_at = NOW()
			WHERE id = $1 RETURNING ` + payoutColumns
	case models.PayoutFailed:
		update = `UPDATE payouts SET status = 'failed', failure_reason = $3, updated_at = $2
			WHERE id = $1 RETURNING ` + payoutColumns
		args = append(args, failureReason)
	default:
		return nil, models.ErrConflict
	}

	p, err := scanPayout(tx.QueryRowContext(ctx, update, args...))
	if err != nil {
		return nil, fmt.Errorf("advance payout: %w", err)
	}

	switch next {
	case models.PayoutCompleted:
		settle := `
			UPDATE conversions SET status = 'PAID', paid_at = $2, updated_at = NOW()
			WHERE id IN (SELECT conversion_id FROM payout_conversions WHERE payout_id = $1)
		`
		if _, err := tx.ExecContext(ctx, settle, id, at); err != nil {
			return nil, fmt.Errorf("settle conversions: %w", err)
		}
	case models.PayoutFailed:
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM payout_conversions WHERE payout_id = $1`, id); err != nil {
			return nil, fmt.Errorf("release conversions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit advance: %w", err)
	}
	committed = true
	if p.ConversionIDs, err = r.conversionIDs(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func validAdvance(from, to models.PayoutStatus) bool {
	switch to {
	case models.PayoutProcessing:
		return from == models.PayoutPending
	case models.PayoutCompleted:
		return from == models.PayoutProcessing
	case models.PayoutFailed:
		return from == models.PayoutPending || from == models.PayoutProcessing
	default:
		return false
	}
}
