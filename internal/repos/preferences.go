package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/types"
)

type PreferencesRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.MatchingPreferences, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.MatchingPreferences) error
}

type preferencesRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPreferencesRepo(db *gorm.DB, baseLog *logger.Logger) PreferencesRepo {
	repoLog := baseLog.With("repo", "PreferencesRepo")
	return &preferencesRepo{db: db, log: repoLog}
}

func (r *preferencesRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.MatchingPreferences, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.MatchingPreferences
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *preferencesRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.MatchingPreferences) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("user_id = ?", row.UserID).
		Assign(map[string]interface{}{
			"matching_enabled":      row.MatchingEnabled,
			"min_compatibility":     row.MinCompatibility,
			"preferred_focus_areas": row.PreferredFocusAreas,
			"max_partners":          row.MaxPartners,
		}).
		FirstOrCreate(row).Error
}
