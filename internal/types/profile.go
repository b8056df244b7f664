package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AvailabilityWindow is one daily slot of [StartHour, EndHour) in the user's
// timezone. A profile stores one window per weekday in a jsonb map keyed by
// lowercase day name.
type AvailabilityWindow struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// UserProfile is owned by the identity service; this service only reads it as
// scoring input.
type UserProfile struct {
	UserID             uuid.UUID      `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	DisplayName        string         `gorm:"column:display_name" json:"display_name"`
	Timezone           string         `gorm:"column:timezone" json:"timezone"`
	FocusAreas         datatypes.JSON `gorm:"type:jsonb;column:focus_areas" json:"focus_areas"`
	CommunicationStyle string         `gorm:"size:20;column:communication_style" json:"communication_style"`
	Availability       datatypes.JSON `gorm:"type:jsonb;column:availability" json:"availability"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profile"
}

// Communication styles recognized by the compatibility matrix.
const (
	CommunicationFrequent = "FREQUENT"
	CommunicationModerate = "MODERATE"
	CommunicationMinimal  = "MINIMAL"
)
