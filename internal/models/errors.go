package models

import "errors"

// Failure categories surfaced to API callers. Handlers map these onto HTTP
// statuses; the core never retries on its own.
var (
	// ErrNotFound covers unknown tracking codes, link ids, conversion ids and
	// payout ids, as well as links that exist but are no longer active.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateConversion is returned for a repeated (tracking_link, order_id)
	// pair. The call that hits it also returns the already-persisted conversion.
	ErrDuplicateConversion = errors.New("conversion already recorded for order")

	// ErrAttributionExpired means the conversion fell outside the attribution
	// window relative to the link's most recent click.
	ErrAttributionExpired = errors.New("attribution window expired")

	// ErrInsufficientBalance rejects a payout request larger than the
	// influencer's available balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNoRateConfigured means no commission rate resolved for a conversion
	// context. The brand-level platform default makes this unreachable in
	// practice, but the resolver still reports it rather than inventing a rate.
	ErrNoRateConfigured = errors.New("no commission rate configured")

	// ErrConflict marks a lost race: a concurrent payout claimed the same
	// conversions, or a status transition raced an earlier one.
	ErrConflict = errors.New("conflicting concurrent update")

	// ErrStorageUnavailable wraps transient storage failures (connection loss,
	// serialization aborts already retried out). Reads may be retried freely;
	// writes must re-check state first.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
