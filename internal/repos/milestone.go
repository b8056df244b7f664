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

type MilestoneRepo interface {
	Create(ctx context.Context, tx *gorm.DB, m *types.Milestone) (*types.Milestone, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Milestone, error)
	ListByGoal(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) ([]*types.Milestone, error)
	NextPosition(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) (int, error)
	Update(ctx context.Context, tx *gorm.DB, m *types.Milestone) error
	Reorder(ctx context.Context, tx *gorm.DB, goalID uuid.UUID, orderedIDs []uuid.UUID) error
}

type milestoneRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMilestoneRepo(db *gorm.DB, baseLog *logger.Logger) MilestoneRepo {
	repoLog := baseLog.With("repo", "MilestoneRepo")
	return &milestoneRepo{db: db, log: repoLog}
}

func (r *milestoneRepo) Create(ctx context.Context, tx *gorm.DB, m *types.Milestone) (*types.Milestone, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (r *milestoneRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Milestone, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var m types.Milestone
	if err := transaction.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *milestoneRepo) ListByGoal(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) ([]*types.Milestone, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Milestone
	if err := transaction.WithContext(ctx).
		Where("goal_id = ?", goalID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *milestoneRepo) NextPosition(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var max *int
	if err := transaction.WithContext(ctx).
		Model(&types.Milestone{}).
		Where("goal_id = ?", goalID).
		Select("MAX(position)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}

func (r *milestoneRepo) Update(ctx context.Context, tx *gorm.DB, m *types.Milestone) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	m.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).Save(m).Error
}

// Reorder rewrites the positions of a goal's milestones to match orderedIDs.
// Runs inside one transaction so a partial reorder never persists.
func (r *milestoneRepo) Reorder(ctx context.Context, tx *gorm.DB, goalID uuid.UUID, orderedIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		for i, id := range orderedIDs {
			res := inner.Model(&types.Milestone{}).
				Where("id = ? AND goal_id = ?", id, goalID).
				Updates(map[string]interface{}{
					"position":   i,
					"updated_at": time.Now().UTC(),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}
