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

type CheckInRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.CheckIn) (*types.CheckIn, error)
	ListByPartnership(ctx context.Context, tx *gorm.DB, partnershipID uuid.UUID, limit int) ([]*types.CheckIn, error)
	CountForUserSince(ctx context.Context, tx *gorm.DB, partnershipID, userID uuid.UUID, since time.Time) (int64, error)
	LastForUser(ctx context.Context, tx *gorm.DB, partnershipID, userID uuid.UUID) (*types.CheckIn, error)
	CheckinDaysForUserSince(ctx context.Context, tx *gorm.DB, partnershipID, userID uuid.UUID, since time.Time) ([]time.Time, error)
}

type checkInRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCheckInRepo(db *gorm.DB, baseLog *logger.Logger) CheckInRepo {
	repoLog := baseLog.With("repo", "CheckInRepo")
	return &checkInRepo{db: db, log: repoLog}
}

func (r *checkInRepo) Create(ctx context.Context, tx *gorm.DB, row *types.CheckIn) (*types.CheckIn, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *checkInRepo) ListByPartnership(ctx context.Context, tx *gorm.DB, partnershipID uuid.UUID, limit int) ([]*types.CheckIn, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).
		Where("partnership_id = ?", partnershipID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var results []*types.CheckIn
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *checkInRepo) CountForUserSince(ctx context.Context, tx *gorm.DB, partnershipID, userID uuid.UUID, since time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CheckIn{}).
		Where("partnership_id = ? AND user_id = ? AND created_at >= ?", partnershipID, userID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *checkInRepo) LastForUser(ctx context.Context, tx *gorm.DB, partnershipID, userID uuid.UUID) (*types.CheckIn, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.CheckIn
	if err := transaction.WithContext(ctx).
		Where("partnership_id = ? AND user_id = ?", partnershipID, userID).
		Order("created_at DESC").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// CheckinDaysForUserSince returns the raw created_at timestamps for a user's
// check-ins in a partnership since the cutoff, newest first. Streak math
// collapses them to calendar days in the service so the day boundary stays
// a single piece of logic.
func (r *checkInRepo) CheckinDaysForUserSince(ctx context.Context, tx *gorm.DB, partnershipID, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var stamps []time.Time
	if err := transaction.WithContext(ctx).
		Model(&types.CheckIn{}).
		Where("partnership_id = ? AND user_id = ? AND created_at >= ?", partnershipID, userID, since).
		Order("created_at DESC").
		Pluck("created_at", &stamps).Error; err != nil {
		return nil, err
	}
	return stamps, nil
}
