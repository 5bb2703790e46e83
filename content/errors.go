package content

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a slug or URL id has no row.
	ErrNotFound = errors.New("content: not found")
	// ErrDuplicateSlug is returned by Create when the slug is already taken.
	ErrDuplicateSlug = errors.New("content: duplicate slug")
	// ErrStoreUnavailable wraps any failure talking to the database.
	ErrStoreUnavailable = errors.New("content: store unavailable")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("content: %s: %w: %w", op, ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
