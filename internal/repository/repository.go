package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Postgres error codes we act on. Uniqueness and serialization failures are
// how the storage layer closes the races the application cannot.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgSerializationFail   = "40001"
)

func isPGError(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}

func isUniqueViolation(err error) bool      { return isPGError(err, pgUniqueViolation) }
func isForeignKeyViolation(err error) bool  { return isPGError(err, pgForeignKeyViolation) }
func isSerializationFailure(err error) bool { return isPGError(err, pgSerializationFail) }
