package types

import (
	"time"

	"github.com/google/uuid"
)

// AccountabilityScore is the rolling engagement score for one user within one
// partnership (partnership_id null means user-wide). One row per slot: the
// composite unique index covers partnership rows, and a partial index on
// user_id alone covers the null-partnership user-wide row.
type AccountabilityScore struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID  `gorm:"type:uuid;not null;column:user_id;uniqueIndex:uq_accountability_user_partnership" json:"user_id"`
	PartnershipID     *uuid.UUID `gorm:"type:uuid;column:partnership_id;uniqueIndex:uq_accountability_user_partnership" json:"partnership_id,omitempty"`
	Score             float64    `gorm:"not null;default:0;column:score" json:"score"`
	CheckinsCompleted int        `gorm:"not null;default:0;column:checkins_completed" json:"checkins_completed"`
	GoalsAchieved     int        `gorm:"not null;default:0;column:goals_achieved" json:"goals_achieved"`
	ResponseRate      float64    `gorm:"not null;default:0;column:response_rate" json:"response_rate"`
	StreakDays        int        `gorm:"not null;default:0;column:streak_days" json:"streak_days"`
	CalculatedAt      time.Time  `gorm:"column:calculated_at" json:"calculated_at"`
	Version           int64      `gorm:"not null;default:0;column:version" json:"version"`
	CreatedAt         time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (AccountabilityScore) TableName() string {
	return "accountability_score"
}
