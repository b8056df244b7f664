package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/types"
	"github.com/focushive/buddy-service/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "buddy", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.UserProfile{},
		&types.MatchingPreferences{},
		&types.BuddyPartnership{},
		&types.AccountabilityScore{},
		&types.Goal{},
		&types.Milestone{},
		&types.CheckIn{},
		&types.GoalProgressEntry{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring partnership constraints...")

	// The partial unique index is the ultimate guard for the one-open-
	// partnership-per-pair invariant; the application-level check only saves
	// round trips. Race losers see a unique-violation from this index.
	if err := s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_partnership_pair_open
		ON buddy_partnership (user1_id, user2_id)
		WHERE status <> 'ENDED'
	`).Error; err != nil {
		return fmt.Errorf("create uq_partnership_pair_open: %w", err)
	}

	// The composite unique index from the model tags treats null
	// partnership_id values as distinct, so user-wide score rows need their
	// own partial index to stay one per user.
	if err := s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_accountability_user_wide
		ON accountability_score (user_id)
		WHERE partnership_id IS NULL
	`).Error; err != nil {
		return fmt.Errorf("create uq_accountability_user_wide: %w", err)
	}

	for _, stmt := range []struct {
		name string
		sql  string
	}{
		{"chk_different_users", `ALTER TABLE buddy_partnership ADD CONSTRAINT chk_different_users CHECK (user1_id <> user2_id)`},
		{"chk_canonical_order", `ALTER TABLE buddy_partnership ADD CONSTRAINT chk_canonical_order CHECK (user1_id::text < user2_id::text)`},
		{"chk_health_score", `ALTER TABLE buddy_partnership ADD CONSTRAINT chk_health_score CHECK (health_score >= 0 AND health_score <= 1)`},
		{"chk_progress_range", `ALTER TABLE goal ADD CONSTRAINT chk_progress_range CHECK (progress_percentage >= 0 AND progress_percentage <= 100)`},
	} {
		if err := s.db.Exec(fmt.Sprintf(`
			DO $$ BEGIN
				%s;
			EXCEPTION WHEN duplicate_object THEN NULL;
			END $$;
		`, stmt.sql)).Error; err != nil {
			return fmt.Errorf("add %s: %w", stmt.name, err)
		}
	}

	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
