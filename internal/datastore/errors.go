package datastore

import (
	"errors"

	"github.com/uptrace/bun/driver/pgdriver"
)

const pgUniqueViolation = "23505"

// ErrDuplicate marks a unique-constraint conflict for store implementations
// that cannot surface a driver error.
var ErrDuplicate = errors.New("duplicate key")

// IsUniqueViolation reports whether err is a duplicate-key error.
// Callers generally treat it as "the row already exists", not as a failure.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == pgUniqueViolation
	}
	return false
}
