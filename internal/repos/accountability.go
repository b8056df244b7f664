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

type AccountabilityRepo interface {
	GetByUserAndPartnership(ctx context.Context, tx *gorm.DB, userID uuid.UUID, partnershipID *uuid.UUID) (*types.AccountabilityScore, error)
	ListByPartnership(ctx context.Context, tx *gorm.DB, partnershipID uuid.UUID) ([]*types.AccountabilityScore, error)
	Create(ctx context.Context, tx *gorm.DB, row *types.AccountabilityScore) (*types.AccountabilityScore, error)
	UpdateWithVersion(ctx context.Context, tx *gorm.DB, row *types.AccountabilityScore, expectedVersion int64) error
}

type accountabilityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountabilityRepo(db *gorm.DB, baseLog *logger.Logger) AccountabilityRepo {
	repoLog := baseLog.With("repo", "AccountabilityRepo")
	return &accountabilityRepo{db: db, log: repoLog}
}

func (r *accountabilityRepo) GetByUserAndPartnership(ctx context.Context, tx *gorm.DB, userID uuid.UUID, partnershipID *uuid.UUID) (*types.AccountabilityScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).Where("user_id = ?", userID)
	if partnershipID == nil {
		q = q.Where("partnership_id IS NULL")
	} else {
		q = q.Where("partnership_id = ?", *partnershipID)
	}

	var row types.AccountabilityScore
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *accountabilityRepo) ListByPartnership(ctx context.Context, tx *gorm.DB, partnershipID uuid.UUID) ([]*types.AccountabilityScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AccountabilityScore
	if err := transaction.WithContext(ctx).
		Where("partnership_id = ?", partnershipID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *accountabilityRepo) Create(ctx context.Context, tx *gorm.DB, row *types.AccountabilityScore) (*types.AccountabilityScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateScore
		}
		return nil, err
	}
	return row, nil
}

func (r *accountabilityRepo) UpdateWithVersion(ctx context.Context, tx *gorm.DB, row *types.AccountabilityScore, expectedVersion int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	row.Version = expectedVersion + 1
	res := transaction.WithContext(ctx).
		Model(&types.AccountabilityScore{}).
		Where("id = ? AND version = ?", row.ID, expectedVersion).
		Updates(map[string]interface{}{
			"score":              row.Score,
			"checkins_completed": row.CheckinsCompleted,
			"goals_achieved":     row.GoalsAchieved,
			"response_rate":      row.ResponseRate,
			"streak_days":        row.StreakDays,
			"calculated_at":      row.CalculatedAt,
			"version":            row.Version,
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
