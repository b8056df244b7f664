package types

import (
	"time"

	"github.com/google/uuid"
)

// GoalProgressEntry is one point in a goal's progress time series. The series
// backs velocity analytics, completion-date extrapolation and stagnation
// detection.
type GoalProgressEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GoalID     uuid.UUID `gorm:"type:uuid;not null;column:goal_id;index" json:"goal_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;column:user_id" json:"user_id"`
	Percentage int       `gorm:"not null;column:percentage" json:"percentage"`
	Note       string    `gorm:"column:note" json:"note,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (GoalProgressEntry) TableName() string {
	return "goal_progress_entry"
}
