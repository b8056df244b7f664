package types

import (
	"time"

	"github.com/google/uuid"
)

type PartnershipStatus string

const (
	PartnershipPending PartnershipStatus = "PENDING"
	PartnershipActive  PartnershipStatus = "ACTIVE"
	PartnershipPaused  PartnershipStatus = "PAUSED"
	PartnershipEnded   PartnershipStatus = "ENDED"
)

// partnershipTransitions is the status machine: allowed target statuses per
// current status. ENDED is terminal and has no entries.
var partnershipTransitions = map[PartnershipStatus][]PartnershipStatus{
	PartnershipPending: {PartnershipActive, PartnershipEnded},
	PartnershipActive:  {PartnershipPaused, PartnershipEnded},
	PartnershipPaused:  {PartnershipActive, PartnershipEnded},
	PartnershipEnded:   {},
}

// CanTransition reports whether a partnership may move from one status to
// another.
func CanTransition(from, to PartnershipStatus) bool {
	for _, allowed := range partnershipTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanonicalPair orders two user ids so the lexicographically smaller uuid
// string comes first. Partnerships always persist the pair in this order, so
// pair lookups and the uniqueness index are a single equality check.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

type BuddyPartnership struct {
	ID                 uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	User1ID            uuid.UUID         `gorm:"type:uuid;not null;column:user1_id;index:idx_partnership_pair" json:"user1_id"`
	User2ID            uuid.UUID         `gorm:"type:uuid;not null;column:user2_id;index:idx_partnership_pair" json:"user2_id"`
	RequestedBy        uuid.UUID         `gorm:"type:uuid;not null;column:requested_by" json:"requested_by"`
	Status             PartnershipStatus `gorm:"not null;default:'PENDING';column:status;index" json:"status"`
	CompatibilityScore float64           `gorm:"column:compatibility_score" json:"compatibility_score"`
	HealthScore        float64           `gorm:"not null;default:1;column:health_score" json:"health_score"`
	LastInteractionAt  *time.Time        `gorm:"column:last_interaction_at;index" json:"last_interaction_at,omitempty"`
	StartedAt          *time.Time        `gorm:"column:started_at" json:"started_at,omitempty"`
	EndedAt            *time.Time        `gorm:"column:ended_at" json:"ended_at,omitempty"`
	EndReason          string            `gorm:"size:200;column:end_reason" json:"end_reason,omitempty"`
	ResumeAt           *time.Time        `gorm:"column:resume_at" json:"resume_at,omitempty"`
	Version            int64             `gorm:"not null;default:0;column:version" json:"version"`
	CreatedAt          time.Time         `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

func (BuddyPartnership) TableName() string {
	return "buddy_partnership"
}

// InvolvesUser reports whether userID is one of the two parties.
func (p *BuddyPartnership) InvolvesUser(userID uuid.UUID) bool {
	return p.User1ID == userID || p.User2ID == userID
}

// PartnerOf returns the other party for userID, or uuid.Nil when userID is
// not a party.
func (p *BuddyPartnership) PartnerOf(userID uuid.UUID) uuid.UUID {
	switch userID {
	case p.User1ID:
		return p.User2ID
	case p.User2ID:
		return p.User1ID
	}
	return uuid.Nil
}

// Open reports whether the partnership counts against the per-user limit and
// the one-open-partnership-per-pair invariant.
func (p *BuddyPartnership) Open() bool {
	return p.Status != PartnershipEnded
}
