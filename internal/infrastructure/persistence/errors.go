package persistence

import (
	"errors"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
)

// translateError maps database errors onto the domain error taxonomy so
// callers above the persistence layer never match on driver errors.
// Serialization failures and deadlocks become the transient conflict the
// orchestrator retries on. The gorm postgres driver speaks pgx, so the
// SQLSTATE arrives as a *pgconn.PgError.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return shared.ErrConcurrencyConflict
		case pgUniqueViolation:
			return shared.NewConflictError("duplicate record: %s", pgErr.ConstraintName)
		case pgCheckViolation:
			return shared.NewConflictError("constraint violated: %s", pgErr.ConstraintName)
		}
	}
	return err
}
