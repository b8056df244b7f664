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

type GoalRepo interface {
	Create(ctx context.Context, tx *gorm.DB, goal *types.Goal) (*types.Goal, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Goal, error)
	FindByCreator(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Goal, error)
	FindByPartnership(ctx context.Context, tx *gorm.DB, partnershipID uuid.UUID) ([]*types.Goal, error)
	FindActiveUpdatedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]*types.Goal, error)
	UpdateWithVersion(ctx context.Context, tx *gorm.DB, goal *types.Goal, expectedVersion int64) error
}

type goalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGoalRepo(db *gorm.DB, baseLog *logger.Logger) GoalRepo {
	repoLog := baseLog.With("repo", "GoalRepo")
	return &goalRepo{db: db, log: repoLog}
}

func (r *goalRepo) Create(ctx context.Context, tx *gorm.DB, goal *types.Goal) (*types.Goal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(goal).Error; err != nil {
		return nil, err
	}
	return goal, nil
}

func (r *goalRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Goal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var goal types.Goal
	if err := transaction.WithContext(ctx).Where("id = ?", id).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &goal, nil
}

func (r *goalRepo) FindByCreator(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Goal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var goals []*types.Goal
	if err := transaction.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("created_at DESC").
		Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *goalRepo) FindByPartnership(ctx context.Context, tx *gorm.DB, partnershipID uuid.UUID) ([]*types.Goal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var goals []*types.Goal
	if err := transaction.WithContext(ctx).
		Where("partnership_id = ?", partnershipID).
		Order("created_at DESC").
		Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *goalRepo) FindActiveUpdatedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]*types.Goal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var goals []*types.Goal
	if err := transaction.WithContext(ctx).
		Where("status = ? AND updated_at < ?", types.GoalActive, cutoff).
		Order("updated_at ASC").
		Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *goalRepo) UpdateWithVersion(ctx context.Context, tx *gorm.DB, goal *types.Goal, expectedVersion int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	goal.Version = expectedVersion + 1
	res := transaction.WithContext(ctx).
		Model(&types.Goal{}).
		Where("id = ? AND version = ?", goal.ID, expectedVersion).
		Updates(map[string]interface{}{
			"title":               goal.Title,
			"description":         goal.Description,
			"status":              goal.Status,
			"progress_percentage": goal.ProgressPercentage,
			"target_date":         goal.TargetDate,
			"completed_at":        goal.CompletedAt,
			"version":             goal.Version,
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
