package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"reservo/internal/store"
)

const (
	codeExclusionViolation   = "23P01"
	codeLockNotAvailable     = "55P03"
	codeDeadlockDetected     = "40P01"
	codeSerializationFailure = "40001"

	constraintNoOverlap = "reservations_no_overlap"
)

// classify maps driver errors onto store sentinels. Errors that already carry a
// sentinel pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeExclusionViolation:
		if pgErr.ConstraintName == constraintNoOverlap {
			return store.ErrConflict
		}
	case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure:
		return fmt.Errorf("%w: %s", store.ErrContention, pgErr.Message)
	}
	return err
}
