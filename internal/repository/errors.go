package repository

import (
	"errors"

	"gorm.io/gorm"
)

// Common repository errors
var (
	// ErrInconsistentProgress is returned when a task would keep progress 100 without being COMPLETED
	ErrInconsistentProgress = errors.New("progress 100 requires status COMPLETED")

	// errUniqueViolation aborts a transaction when a unique pair or field is already taken
	errUniqueViolation = errors.New("unique constraint violation")

	// errNoRows aborts a transaction when the target row does not exist
	errNoRows = errors.New("no matching row")
)

// settle maps transaction outcomes to the (ok, err) convention of mutating calls:
// conflicts and missing rows are reported as false with a nil error.
func settle(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errUniqueViolation), errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, errNoRows):
		return false, nil
	default:
		return false, err
	}
}
