package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type GoalType string

const (
	GoalIndividual GoalType = "INDIVIDUAL"
	GoalShared     GoalType = "SHARED"
)

type GoalStatus string

const (
	GoalActive    GoalStatus = "ACTIVE"
	GoalCompleted GoalStatus = "COMPLETED"
	GoalCancelled GoalStatus = "CANCELLED"
)

type Goal struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title              string     `gorm:"not null;size:200;column:title" json:"title"`
	Description        string     `gorm:"column:description" json:"description,omitempty"`
	Type               GoalType   `gorm:"not null;size:20;column:type" json:"type"`
	PartnershipID      *uuid.UUID `gorm:"type:uuid;column:partnership_id;index" json:"partnership_id,omitempty"`
	CreatedBy          uuid.UUID  `gorm:"type:uuid;not null;column:created_by;index" json:"created_by"`
	Status             GoalStatus `gorm:"not null;default:'ACTIVE';size:20;column:status" json:"status"`
	ProgressPercentage int        `gorm:"not null;default:0;column:progress_percentage" json:"progress_percentage"`
	TargetDate         *time.Time `gorm:"column:target_date" json:"target_date,omitempty"`
	CompletedAt        *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Version            int64      `gorm:"not null;default:0;column:version" json:"version"`
	CreatedAt          time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Goal) TableName() string {
	return "goal"
}

// Validate enforces the structural invariants checked before every write:
// SHARED goals belong to a partnership, INDIVIDUAL goals must not.
func (g *Goal) Validate() error {
	if g.Title == "" {
		return fmt.Errorf("goal title is required")
	}
	switch g.Type {
	case GoalShared:
		if g.PartnershipID == nil {
			return fmt.Errorf("shared goal requires a partnership id")
		}
	case GoalIndividual:
		if g.PartnershipID != nil {
			return fmt.Errorf("individual goal must not carry a partnership id")
		}
	default:
		return fmt.Errorf("unknown goal type %q", g.Type)
	}
	if g.ProgressPercentage < 0 || g.ProgressPercentage > 100 {
		return fmt.Errorf("progress percentage %d out of range [0,100]", g.ProgressPercentage)
	}
	return nil
}
