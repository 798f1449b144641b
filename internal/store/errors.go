package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrBadReference means a foreign key points at a row that does not exist.
	ErrBadReference = errors.New("referenced record does not exist")
)

// SQLSTATE codes from the integrity constraint violation class.
var constraintErrors = map[string]error{
	"23505": ErrConflict,
	"23503": ErrBadReference,
}

// translate wraps err with op and, for missing rows and constraint
// violations, with the matching sentinel.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if sentinel, ok := constraintErrors[pgErr.Code]; ok {
			return fmt.Errorf("%s: %w (%s)", op, sentinel, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
