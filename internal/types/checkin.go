package types

import (
	"time"

	"github.com/google/uuid"
)

type CheckInType string

const (
	CheckInDaily         CheckInType = "DAILY"
	CheckInWeekly        CheckInType = "WEEKLY"
	CheckInMilestone     CheckInType = "MILESTONE"
	CheckInGoalUpdate    CheckInType = "GOAL_UPDATE"
	CheckInEncouragement CheckInType = "ENCOURAGEMENT"
)

func ValidCheckInType(t CheckInType) bool {
	switch t {
	case CheckInDaily, CheckInWeekly, CheckInMilestone, CheckInGoalUpdate, CheckInEncouragement:
		return true
	}
	return false
}

type Mood string

const (
	MoodMotivated    Mood = "MOTIVATED"
	MoodFocused      Mood = "FOCUSED"
	MoodStressed     Mood = "STRESSED"
	MoodTired        Mood = "TIRED"
	MoodExcited      Mood = "EXCITED"
	MoodNeutral      Mood = "NEUTRAL"
	MoodFrustrated   Mood = "FRUSTRATED"
	MoodAccomplished Mood = "ACCOMPLISHED"
)

func ValidMood(m Mood) bool {
	switch m {
	case MoodMotivated, MoodFocused, MoodStressed, MoodTired, MoodExcited, MoodNeutral, MoodFrustrated, MoodAccomplished:
		return true
	}
	return false
}

// CheckIn is one entry in the append-only check-in log feeding the
// accountability score. Rows are never updated or deleted.
type CheckIn struct {
	ID                 uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PartnershipID      uuid.UUID   `gorm:"type:uuid;not null;column:partnership_id;index" json:"partnership_id"`
	UserID             uuid.UUID   `gorm:"type:uuid;not null;column:user_id;index" json:"user_id"`
	Type               CheckInType `gorm:"not null;size:20;column:type" json:"type"`
	Mood               Mood        `gorm:"size:20;column:mood" json:"mood,omitempty"`
	ProductivityRating int         `gorm:"column:productivity_rating" json:"productivity_rating"`
	FocusHours         float64     `gorm:"column:focus_hours" json:"focus_hours"`
	Note               string      `gorm:"column:note" json:"note,omitempty"`
	CreatedAt          time.Time   `gorm:"not null;default:now();index" json:"created_at"`
}

func (CheckIn) TableName() string {
	return "check_in"
}
