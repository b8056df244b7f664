package repos

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrDuplicatePair is returned when the open-pair uniqueness index
	// rejects a partnership insert.
	ErrDuplicatePair = errors.New("open partnership already exists for pair")
	// ErrDuplicateScore is returned when the accountability uniqueness
	// indexes reject a second score row for the same (user, partnership)
	// slot, including the user-wide slot with a null partnership.
	ErrDuplicateScore = errors.New("accountability score already exists for user and partnership")
	// ErrVersionConflict is returned when a compare-and-swap write matched
	// zero rows because the version moved underneath the caller.
	ErrVersionConflict = errors.New("version conflict")
)

// isUniqueViolation recognizes unique-index rejections from both postgres and
// the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
