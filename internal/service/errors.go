package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pmdashboard/internal/access"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("already exists")
	ErrForbidden = errors.New("forbidden")
)

// ValidationError is returned before any storage call when input is rejected
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

func conflict(what string) error {
	return fmt.Errorf("%s %w", what, ErrConflict)
}

// check converts a denied decision into an error matching both ErrForbidden and *access.DeniedError
func check(d access.Decision) error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrForbidden, d.Err())
}

// Clock supplies "now", tests inject a fixed one
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

func minLength(field, value string, n int) error {
	if len([]rune(strings.TrimSpace(value))) < n {
		return invalid(field, "must contain at least %d characters", n)
	}
	return nil
}
