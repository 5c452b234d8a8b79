package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a record does not exist in the caller's company.
	ErrNotFound = errors.New("not found")
	// ErrValidation wraps input that fails a business rule.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState is returned when a document's status does not allow the operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict is returned on unique-key or foreign-key violations.
	ErrConflict = errors.New("conflict")
	// ErrQuotaExceeded is returned when a company has used up its monthly AI quota.
	ErrQuotaExceeded = errors.New("ai usage quota exceeded")
	// ErrForbidden is returned when a user is not a member of the requested company.
	ErrForbidden = errors.New("forbidden")
)

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func invalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// wrapDBError maps pgx/Postgres errors onto the package sentinels.
func wrapDBError(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w: %s", msg, ErrConflict, pgErr.Detail)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w: record is still referenced", msg, ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
