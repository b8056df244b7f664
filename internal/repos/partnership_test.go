package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/types"
)

// newTestDB opens an in-memory sqlite database with the partnership schema,
// including the partial unique index that guards the one-open-pair invariant.
// Postgres-only column defaults don't translate, so the DDL is explicit and
// tests assign ids themselves.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// each connection gets its own :memory: database
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.Exec(`
		CREATE TABLE buddy_partnership (
			id TEXT PRIMARY KEY,
			user1_id TEXT NOT NULL,
			user2_id TEXT NOT NULL,
			requested_by TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			compatibility_score REAL DEFAULT 0,
			health_score REAL NOT NULL DEFAULT 1,
			last_interaction_at DATETIME,
			started_at DATETIME,
			ended_at DATETIME,
			end_reason TEXT DEFAULT '',
			resume_at DATETIME,
			version INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := gdb.Exec(`
		CREATE UNIQUE INDEX uq_partnership_pair_open
		ON buddy_partnership (user1_id, user2_id)
		WHERE status <> 'ENDED'
	`).Error; err != nil {
		t.Fatalf("create index: %v", err)
	}
	return gdb
}

func newTestRepo(t *testing.T) PartnershipRepo {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init test logger: %v", err)
	}
	return NewPartnershipRepo(newTestDB(t), log)
}

func partnershipRow(user1, user2 uuid.UUID, status types.PartnershipStatus) *types.BuddyPartnership {
	now := time.Now().UTC()
	return &types.BuddyPartnership{
		ID:          uuid.New(),
		User1ID:     user1,
		User2ID:     user2,
		RequestedBy: user1,
		Status:      status,
		HealthScore: 1.0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCreateStoresCanonicalPair(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	userA := uuid.New()
	userB := uuid.New()

	created, err := repo.Create(ctx, nil, partnershipRow(userB, userA, types.PartnershipPending))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wantU1, wantU2 := types.CanonicalPair(userA, userB)
	if created.User1ID != wantU1 || created.User2ID != wantU2 {
		t.Fatalf("expected canonical pair (%s, %s), got (%s, %s)",
			wantU1, wantU2, created.User1ID, created.User2ID)
	}

	// Lookup succeeds regardless of argument order.
	for _, pair := range [][2]uuid.UUID{{userA, userB}, {userB, userA}} {
		got, err := repo.GetOpenByPair(ctx, nil, pair[0], pair[1])
		if err != nil {
			t.Fatalf("GetOpenByPair: %v", err)
		}
		if got == nil || got.ID != created.ID {
			t.Fatalf("expected to find %s, got %v", created.ID, got)
		}
	}
}

func TestCreateRejectsDuplicateOpenPair(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	userA := uuid.New()
	userB := uuid.New()

	first, err := repo.Create(ctx, nil, partnershipRow(userA, userB, types.PartnershipPending))
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}

	// The reversed pair canonicalizes to the same index entry.
	_, err = repo.Create(ctx, nil, partnershipRow(userB, userA, types.PartnershipPending))
	if !errors.Is(err, ErrDuplicatePair) {
		t.Fatalf("expected ErrDuplicatePair, got %v", err)
	}

	// Ending the open row frees the pair for a fresh partnership.
	now := time.Now().UTC()
	first.Status = types.PartnershipEnded
	first.EndedAt = &now
	first.EndReason = "ended by user"
	if err := repo.UpdateWithVersion(ctx, nil, first, 0); err != nil {
		t.Fatalf("UpdateWithVersion: %v", err)
	}
	if _, err := repo.Create(ctx, nil, partnershipRow(userA, userB, types.PartnershipPending)); err != nil {
		t.Fatalf("Create after end: %v", err)
	}
}

func TestUpdateWithVersion(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	row, err := repo.Create(ctx, nil, partnershipRow(uuid.New(), uuid.New(), types.PartnershipPending))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	row.Status = types.PartnershipActive
	if err := repo.UpdateWithVersion(ctx, nil, row, 0); err != nil {
		t.Fatalf("UpdateWithVersion: %v", err)
	}

	got, err := repo.GetByID(ctx, nil, row.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.PartnershipActive || got.Version != 1 {
		t.Fatalf("expected ACTIVE at version 1, got %s at %d", got.Status, got.Version)
	}

	// A stale expected version matches zero rows.
	got.Status = types.PartnershipPaused
	if err := repo.UpdateWithVersion(ctx, nil, got, 0); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	// The conflicting write left the row untouched.
	reread, err := repo.GetByID(ctx, nil, row.ID)
	if err != nil {
		t.Fatalf("GetByID after conflict: %v", err)
	}
	if reread.Status != types.PartnershipActive || reread.Version != 1 {
		t.Fatalf("expected row unchanged, got %s at %d", reread.Status, reread.Version)
	}
}

func TestGetByIDMissing(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	got, err := repo.GetByID(ctx, nil, uuid.New())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a missing row, got %v", got)
	}
}

func TestOpenPairExcludesEnded(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	userA := uuid.New()
	userB := uuid.New()

	row, err := repo.Create(ctx, nil, partnershipRow(userA, userB, types.PartnershipPending))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	row.Status = types.PartnershipEnded
	if err := repo.UpdateWithVersion(ctx, nil, row, 0); err != nil {
		t.Fatalf("UpdateWithVersion: %v", err)
	}

	got, err := repo.GetOpenByPair(ctx, nil, userA, userB)
	if err != nil {
		t.Fatalf("GetOpenByPair: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no open pair after ending, got %v", got)
	}

	count, err := repo.CountOpenByUser(ctx, nil, userA)
	if err != nil {
		t.Fatalf("CountOpenByUser: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected open count 0, got %d", count)
	}
}

func TestUserQueries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	userID := uuid.New()

	active, err := repo.Create(ctx, nil, partnershipRow(userID, uuid.New(), types.PartnershipActive))
	if err != nil {
		t.Fatalf("Create active: %v", err)
	}
	if _, err := repo.Create(ctx, nil, partnershipRow(userID, uuid.New(), types.PartnershipPending)); err != nil {
		t.Fatalf("Create pending: %v", err)
	}
	ended := partnershipRow(userID, uuid.New(), types.PartnershipEnded)
	if _, err := repo.Create(ctx, nil, ended); err != nil {
		t.Fatalf("Create ended: %v", err)
	}

	open, err := repo.FindOpenByUser(ctx, nil, userID)
	if err != nil {
		t.Fatalf("FindOpenByUser: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open partnerships, got %d", len(open))
	}

	actives, err := repo.FindByUserAndStatus(ctx, nil, userID, types.PartnershipActive)
	if err != nil {
		t.Fatalf("FindByUserAndStatus: %v", err)
	}
	if len(actives) != 1 || actives[0].ID != active.ID {
		t.Fatalf("expected the one active partnership, got %v", actives)
	}

	all, err := repo.FindAllByUser(ctx, nil, userID)
	if err != nil {
		t.Fatalf("FindAllByUser: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 partnerships in history, got %d", len(all))
	}

	count, err := repo.CountOpenByUser(ctx, nil, userID)
	if err != nil {
		t.Fatalf("CountOpenByUser: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected open count 2, got %d", count)
	}

	// Nil user short-circuits instead of matching everything.
	none, err := repo.FindOpenByUser(ctx, nil, uuid.Nil)
	if err != nil {
		t.Fatalf("FindOpenByUser nil: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no rows for the nil user, got %d", len(none))
	}
}

func TestSweepQueries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Now().UTC()

	stalePending := partnershipRow(uuid.New(), uuid.New(), types.PartnershipPending)
	stalePending.CreatedAt = now.Add(-96 * time.Hour)
	if _, err := repo.Create(ctx, nil, stalePending); err != nil {
		t.Fatalf("Create stale pending: %v", err)
	}
	freshPending := partnershipRow(uuid.New(), uuid.New(), types.PartnershipPending)
	if _, err := repo.Create(ctx, nil, freshPending); err != nil {
		t.Fatalf("Create fresh pending: %v", err)
	}

	idle := partnershipRow(uuid.New(), uuid.New(), types.PartnershipActive)
	idleAt := now.Add(-10 * 24 * time.Hour)
	idle.LastInteractionAt = &idleAt
	if _, err := repo.Create(ctx, nil, idle); err != nil {
		t.Fatalf("Create idle active: %v", err)
	}
	neverInteracted := partnershipRow(uuid.New(), uuid.New(), types.PartnershipActive)
	if _, err := repo.Create(ctx, nil, neverInteracted); err != nil {
		t.Fatalf("Create never-interacted active: %v", err)
	}

	expired, err := repo.FindExpiredPending(ctx, nil, now.Add(-72*time.Hour))
	if err != nil {
		t.Fatalf("FindExpiredPending: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != stalePending.ID {
		t.Fatalf("expected only the stale pending row, got %v", expired)
	}

	inactive, err := repo.FindInactiveSince(ctx, nil, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("FindInactiveSince: %v", err)
	}
	if len(inactive) != 1 || inactive[0].ID != idle.ID {
		t.Fatalf("expected only the idle row with a recorded interaction, got %v", inactive)
	}
}
