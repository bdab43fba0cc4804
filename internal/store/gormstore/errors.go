package gormstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/charlesng35/authzd/internal/authz"
)

// isUniqueConstraintError detects uniqueness violations across vendors. Only
// unique/duplicate wording is matched; other constraint failures such as
// foreign keys must not be mistaken for a lost insert race.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry")
}

// isTransactionConflict detects transactions the database aborted to resolve
// lock contention: deadlocks, lock wait timeouts and serialization failures.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil {
		return myErr.Number == 1213 || myErr.Number == 1205
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "database is locked")
}

// translate maps driver errors onto the authz storage contract.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authz.ErrUniqueViolation), errors.Is(err, authz.ErrTransactionConflict):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return authz.ErrRecordNotFound
	case isUniqueConstraintError(err):
		return fmt.Errorf("%w: %v", authz.ErrUniqueViolation, err)
	case isTransactionConflict(err):
		return fmt.Errorf("%w: %v", authz.ErrTransactionConflict, err)
	default:
		return err
	}
}
