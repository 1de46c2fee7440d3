package repository

import (
	"errors"
	"fmt"

	"pos-ledger/pkg/database"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConditionFailed is returned when a guarded update matched no rows.
	ErrConditionFailed = errors.New("conditional update matched no rows")
	ErrDuplicateKey    = errors.New("duplicate key")
)

// translate maps driver errors onto the repository sentinels and keeps
// the original error in the chain.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	default:
		return err
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
