package types

import (
	"time"

	"github.com/google/uuid"
)

// Milestone is an ordered sub-unit of a goal. Position drives listing order
// and "next milestone" queries.
type Milestone struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GoalID      uuid.UUID  `gorm:"type:uuid;not null;column:goal_id;index" json:"goal_id"`
	Title       string     `gorm:"not null;size:200;column:title" json:"title"`
	Position    int        `gorm:"not null;column:position" json:"position"`
	Completed   bool       `gorm:"not null;default:false;column:completed" json:"completed"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	DueDate     *time.Time `gorm:"column:due_date" json:"due_date,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Milestone) TableName() string {
	return "milestone"
}
