package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/types"
)

type ProgressRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.GoalProgressEntry) (*types.GoalProgressEntry, error)
	ListByGoal(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) ([]*types.GoalProgressEntry, error)
	LastEntry(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) (*types.GoalProgressEntry, error)
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	repoLog := baseLog.With("repo", "ProgressRepo")
	return &progressRepo{db: db, log: repoLog}
}

func (r *progressRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.GoalProgressEntry) (*types.GoalProgressEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *progressRepo) ListByGoal(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) ([]*types.GoalProgressEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.GoalProgressEntry
	if err := transaction.WithContext(ctx).
		Where("goal_id = ?", goalID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *progressRepo) LastEntry(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) (*types.GoalProgressEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var entry types.GoalProgressEntry
	if err := transaction.WithContext(ctx).
		Where("goal_id = ?", goalID).
		Order("created_at DESC").
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}
