package persistence

import (
	"errors"
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// PostgreSQL error codes that surface as concurrency conflicts
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// uniqueConstraintErrors maps fragments of an index name (PostgreSQL) or of
// the "table.column" list (SQLite) to the domain error a violation
// represents. Violations not listed here become ErrConcurrencyConflict.
var uniqueConstraintErrors = []struct {
	fragment string
	err      *shared.DomainError
}{
	{"name_key", shared.ErrDuplicateName},
	{"idx_product_tax_profiles_pair", shared.ErrAlreadyAssigned},
	{"product_tax_profiles.tax_profile_id", shared.ErrAlreadyAssigned},
}

// translateError converts driver errors into domain errors. Errors that are
// already domain errors, and unknown errors, pass through unchanged.
func translateError(err error) error {
	if err == nil || shared.IsDomainError(err) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return uniqueViolation(pgErr.ConstraintName, pgErr.Message)
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return shared.ErrConcurrencyConflict.WithMessage("database conflict: %s", pgErr.Message)
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch {
		case liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return uniqueViolation(liteErr.Error(), liteErr.Error())
		case liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked:
			return shared.ErrConcurrencyConflict.WithMessage("database conflict: %s", liteErr.Error())
		}
	}
	return err
}

func uniqueViolation(constraint, detail string) error {
	for _, c := range uniqueConstraintErrors {
		if strings.Contains(constraint, c.fragment) {
			return c.err.WithMessage("%s", detail)
		}
	}
	return shared.ErrConcurrencyConflict.WithMessage("unique constraint violated: %s", detail)
}
