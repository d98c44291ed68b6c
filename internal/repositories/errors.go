package repositories

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict means the row changed since it was read (optimistic lock lost).
	ErrVersionConflict = errors.New("version conflict")
)

// IsNotFoundError covers both the repository sentinel and gorm's own.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
