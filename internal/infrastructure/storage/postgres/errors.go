package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"serviceshop/internal/core/apperror"
)

// SQLSTATE codes the ledger reacts to.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// MapError translates driver errors into AppErrors.
// entity and key describe the row the failing statement addressed.
func MapError(err error, entity string, key any) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound(entity, key)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s %v: %w", entity, key, err)
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return apperror.NewDuplicate(entity, pgErr.ConstraintName, fmt.Sprint(key)).WithCause(err)
	case pgForeignKeyViolation:
		return apperror.NewConflict("operation violates a reference between records").
			WithDetail("entity", entity).
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgCheckViolation:
		if strings.Contains(pgErr.ConstraintName, "available_qty") {
			return apperror.NewNegativeStock(entity, key).WithCause(err)
		}
		return apperror.NewValidation("value violates a constraint").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return apperror.NewConcurrentModification(entity, key).WithCause(err)
	}

	return fmt.Errorf("%s %v: %w", entity, key, err)
}
