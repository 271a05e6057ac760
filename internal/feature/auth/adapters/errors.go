// Package adapters provides repository implementations for the auth feature.
package adapters

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"portal_backend/internal/feature/auth/usecase"
)

const (
	// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
	pgUniqueViolation = "23505"
	// mysqlDuplicateEntry is MySQL error 1062: duplicate entry for a unique key.
	mysqlDuplicateEntry = 1062
)

// storeError wraps a driver failure so callers can match usecase.ErrStoreUnavailable.
func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, usecase.ErrStoreUnavailable, err)
}

// isDuplicateKey reports whether err is a unique-constraint violation from any
// of the supported SQL dialects.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return true
	}
	// sqlite without TranslateError
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
