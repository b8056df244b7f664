package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/types"
)

type PartnershipRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.BuddyPartnership) (*types.BuddyPartnership, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.BuddyPartnership, error)
	// GetOpenByPair looks up the single non-ENDED partnership for a pair.
	// The pair is canonicalized before the equality query; no OR conditions.
	GetOpenByPair(ctx context.Context, tx *gorm.DB, userA, userB uuid.UUID) (*types.BuddyPartnership, error)
	FindOpenByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.BuddyPartnership, error)
	FindByUserAndStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status types.PartnershipStatus) ([]*types.BuddyPartnership, error)
	FindAllByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.BuddyPartnership, error)
	CountOpenByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	FindExpiredPending(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]*types.BuddyPartnership, error)
	FindInactiveSince(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]*types.BuddyPartnership, error)
	// UpdateWithVersion writes row only when the stored version still equals
	// expectedVersion, bumping the version by one. Zero matched rows surfaces
	// ErrVersionConflict.
	UpdateWithVersion(ctx context.Context, tx *gorm.DB, row *types.BuddyPartnership, expectedVersion int64) error
}

type partnershipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPartnershipRepo(db *gorm.DB, baseLog *logger.Logger) PartnershipRepo {
	repoLog := baseLog.With("repo", "PartnershipRepo")
	return &partnershipRepo{db: db, log: repoLog}
}

func (r *partnershipRepo) Create(ctx context.Context, tx *gorm.DB, row *types.BuddyPartnership) (*types.BuddyPartnership, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	row.User1ID, row.User2ID = types.CanonicalPair(row.User1ID, row.User2ID)

	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicatePair
		}
		return nil, err
	}
	return row, nil
}

func (r *partnershipRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.BuddyPartnership, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.BuddyPartnership
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *partnershipRepo) GetOpenByPair(ctx context.Context, tx *gorm.DB, userA, userB uuid.UUID) (*types.BuddyPartnership, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	u1, u2 := types.CanonicalPair(userA, userB)

	var row types.BuddyPartnership
	if err := transaction.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ? AND status <> ?", u1, u2, types.PartnershipEnded).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *partnershipRepo) FindOpenByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.BuddyPartnership, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.BuddyPartnership
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("(user1_id = ? OR user2_id = ?) AND status <> ?", userID, userID, types.PartnershipEnded).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *partnershipRepo) FindByUserAndStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status types.PartnershipStatus) ([]*types.BuddyPartnership, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.BuddyPartnership
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("(user1_id = ? OR user2_id = ?) AND status = ?", userID, userID, status).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *partnershipRepo) FindAllByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.BuddyPartnership, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.BuddyPartnership
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *partnershipRepo) CountOpenByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.BuddyPartnership{}).
		Where("(user1_id = ? OR user2_id = ?) AND status <> ?", userID, userID, types.PartnershipEnded).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *partnershipRepo) FindExpiredPending(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]*types.BuddyPartnership, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.BuddyPartnership
	if err := transaction.WithContext(ctx).
		Where("status = ? AND created_at < ?", types.PartnershipPending, cutoff).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *partnershipRepo) FindInactiveSince(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]*types.BuddyPartnership, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.BuddyPartnership
	if err := transaction.WithContext(ctx).
		Where("status = ? AND last_interaction_at IS NOT NULL AND last_interaction_at < ?", types.PartnershipActive, cutoff).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *partnershipRepo) UpdateWithVersion(ctx context.Context, tx *gorm.DB, row *types.BuddyPartnership, expectedVersion int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	row.Version = expectedVersion + 1
	res := transaction.WithContext(ctx).
		Model(&types.BuddyPartnership{}).
		Where("id = ? AND version = ?", row.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":              row.Status,
			"health_score":        row.HealthScore,
			"last_interaction_at": row.LastInteractionAt,
			"started_at":          row.StartedAt,
			"ended_at":            row.EndedAt,
			"end_reason":          row.EndReason,
			"resume_at":           row.ResumeAt,
			"version":             row.Version,
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
