package persistence

import (
	"errors"
	"strings"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the repositories react to
const (
	pgUniqueViolation      = "23505"
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// translateError maps driver errors onto domain errors. Errors it does not
// recognise are returned unchanged and abort the caller's batch.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrConcurrencyConflict
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable:
			return inventory.ErrLockNotAvailable
		case pgSerializationFailure, pgDeadlockDetected, pgUniqueViolation:
			return shared.ErrConcurrencyConflict
		}
		return err
	}

	// SQLite reports contention and constraint failures only as text
	msg := err.Error()
	switch {
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return inventory.ErrLockNotAvailable
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return shared.ErrConcurrencyConflict
	}
	return err
}

// IsContention reports whether err is lock or serialization contention that
// the reconciliation retry loop is expected to absorb.
func IsContention(err error) bool {
	translated := translateError(err)
	return errors.Is(translated, inventory.ErrLockNotAvailable) ||
		errors.Is(translated, shared.ErrConcurrencyConflict)
}

// isUniqueViolation reports whether err is a duplicate key error.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
