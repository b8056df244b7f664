package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MatchingPreferences holds a user's matching knobs. One row per user,
// created lazily with defaults on first access.
type MatchingPreferences struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID              uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null;column:user_id" json:"user_id"`
	MatchingEnabled     bool           `gorm:"not null;default:true;column:matching_enabled" json:"matching_enabled"`
	MinCompatibility    float64        `gorm:"not null;default:0;column:min_compatibility" json:"min_compatibility"`
	PreferredFocusAreas datatypes.JSON `gorm:"type:jsonb;column:preferred_focus_areas" json:"preferred_focus_areas"`
	MaxPartners         int            `gorm:"not null;default:3;column:max_partners" json:"max_partners"`
	CreatedAt           time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (MatchingPreferences) TableName() string {
	return "matching_preferences"
}

// DefaultPreferences returns the row created on first access.
func DefaultPreferences(userID uuid.UUID) *MatchingPreferences {
	return &MatchingPreferences{
		UserID:           userID,
		MatchingEnabled:  true,
		MinCompatibility: 0.0,
		MaxPartners:      3,
	}
}
