package pkg

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgCodeUniqueViolation      = "23505"
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolationError checks if the error is a unique violation error
func IsUniqueViolationError(err error) bool {
	return pgErrorCode(err) == pgCodeUniqueViolation
}

// IsRetryableTxError reports whether a transaction failed only because it lost
// a race with a concurrent writer, so it can be re-read and applied again.
func IsRetryableTxError(err error) bool {
	switch pgErrorCode(err) {
	case pgCodeSerializationFailure, pgCodeDeadlockDetected:
		return true
	default:
		return false
	}
}
