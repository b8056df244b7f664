package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/repos"
	"github.com/focushive/buddy-service/internal/types"
)

func testLogger(t interface{ Fatalf(string, ...any) }) *logger.Logger {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init test logger: %v", err)
	}
	return log
}

// fakePartnershipRepo mirrors the store semantics the service relies on: the
// partial unique index on open pairs and the version CAS.
type fakePartnershipRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.BuddyPartnership
}

func newFakePartnershipRepo() *fakePartnershipRepo {
	return &fakePartnershipRepo{rows: map[uuid.UUID]*types.BuddyPartnership{}}
}

func (f *fakePartnershipRepo) clone(p *types.BuddyPartnership) *types.BuddyPartnership {
	cp := *p
	return &cp
}

func (f *fakePartnershipRepo) Create(_ context.Context, _ *gorm.DB, row *types.BuddyPartnership) (*types.BuddyPartnership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row.User1ID, row.User2ID = types.CanonicalPair(row.User1ID, row.User2ID)
	for _, existing := range f.rows {
		if existing.User1ID == row.User1ID && existing.User2ID == row.User2ID && existing.Open() {
			return nil, repos.ErrDuplicatePair
		}
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	f.rows[row.ID] = f.clone(row)
	return f.clone(row), nil
}

func (f *fakePartnershipRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.BuddyPartnership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	return f.clone(p), nil
}

func (f *fakePartnershipRepo) GetOpenByPair(_ context.Context, _ *gorm.DB, userA, userB uuid.UUID) (*types.BuddyPartnership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u1, u2 := types.CanonicalPair(userA, userB)
	for _, p := range f.rows {
		if p.User1ID == u1 && p.User2ID == u2 && p.Open() {
			return f.clone(p), nil
		}
	}
	return nil, nil
}

func (f *fakePartnershipRepo) FindOpenByUser(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.BuddyPartnership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.BuddyPartnership
	for _, p := range f.rows {
		if p.InvolvesUser(userID) && p.Open() {
			out = append(out, f.clone(p))
		}
	}
	return out, nil
}

func (f *fakePartnershipRepo) FindByUserAndStatus(_ context.Context, _ *gorm.DB, userID uuid.UUID, status types.PartnershipStatus) ([]*types.BuddyPartnership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.BuddyPartnership
	for _, p := range f.rows {
		if p.InvolvesUser(userID) && p.Status == status {
			out = append(out, f.clone(p))
		}
	}
	return out, nil
}

func (f *fakePartnershipRepo) FindAllByUser(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.BuddyPartnership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.BuddyPartnership
	for _, p := range f.rows {
		if p.InvolvesUser(userID) {
			out = append(out, f.clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakePartnershipRepo) CountOpenByUser(_ context.Context, _ *gorm.DB, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, p := range f.rows {
		if p.InvolvesUser(userID) && p.Open() {
			count++
		}
	}
	return count, nil
}

func (f *fakePartnershipRepo) FindExpiredPending(_ context.Context, _ *gorm.DB, cutoff time.Time) ([]*types.BuddyPartnership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.BuddyPartnership
	for _, p := range f.rows {
		if p.Status == types.PartnershipPending && p.CreatedAt.Before(cutoff) {
			out = append(out, f.clone(p))
		}
	}
	return out, nil
}

func (f *fakePartnershipRepo) FindInactiveSince(_ context.Context, _ *gorm.DB, cutoff time.Time) ([]*types.BuddyPartnership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.BuddyPartnership
	for _, p := range f.rows {
		if p.Status == types.PartnershipActive && p.LastInteractionAt != nil && p.LastInteractionAt.Before(cutoff) {
			out = append(out, f.clone(p))
		}
	}
	return out, nil
}

func (f *fakePartnershipRepo) UpdateWithVersion(_ context.Context, _ *gorm.DB, row *types.BuddyPartnership, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.rows[row.ID]
	if !ok || stored.Version != expectedVersion {
		return repos.ErrVersionConflict
	}
	row.Version = expectedVersion + 1
	f.rows[row.ID] = f.clone(row)
	return nil
}

type fakePreferencesRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.MatchingPreferences
}

func newFakePreferencesRepo() *fakePreferencesRepo {
	return &fakePreferencesRepo{rows: map[uuid.UUID]*types.MatchingPreferences{}}
}

func (f *fakePreferencesRepo) GetByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) (*types.MatchingPreferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePreferencesRepo) Upsert(_ context.Context, _ *gorm.DB, row *types.MatchingPreferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *row
	f.rows[row.UserID] = &cp
	return nil
}

type fakeProfileRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.UserProfile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{rows: map[uuid.UUID]*types.UserProfile{}}
}

func (f *fakeProfileRepo) add(p *types.UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[p.UserID] = p
}

func (f *fakeProfileRepo) GetByID(_ context.Context, _ *gorm.DB, userID uuid.UUID) (*types.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfileRepo) GetByIDs(_ context.Context, _ *gorm.DB, userIDs []uuid.UUID) ([]*types.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.UserProfile
	for _, id := range userIDs {
		if p, ok := f.rows[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type accountKey struct {
	user        uuid.UUID
	partnership uuid.UUID // uuid.Nil for user-wide
}

type fakeAccountabilityRepo struct {
	mu   sync.Mutex
	rows map[accountKey]*types.AccountabilityScore
}

func newFakeAccountabilityRepo() *fakeAccountabilityRepo {
	return &fakeAccountabilityRepo{rows: map[accountKey]*types.AccountabilityScore{}}
}

func keyFor(userID uuid.UUID, partnershipID *uuid.UUID) accountKey {
	k := accountKey{user: userID}
	if partnershipID != nil {
		k.partnership = *partnershipID
	}
	return k
}

func (f *fakeAccountabilityRepo) GetByUserAndPartnership(_ context.Context, _ *gorm.DB, userID uuid.UUID, partnershipID *uuid.UUID) (*types.AccountabilityScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[keyFor(userID, partnershipID)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeAccountabilityRepo) ListByPartnership(_ context.Context, _ *gorm.DB, partnershipID uuid.UUID) ([]*types.AccountabilityScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.AccountabilityScore
	for k, row := range f.rows {
		if k.partnership == partnershipID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAccountabilityRepo) Create(_ context.Context, _ *gorm.DB, row *types.AccountabilityScore) (*types.AccountabilityScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.rows[keyFor(row.UserID, row.PartnershipID)]; exists {
		return nil, repos.ErrDuplicateScore
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	cp := *row
	f.rows[keyFor(row.UserID, row.PartnershipID)] = &cp
	return row, nil
}

func (f *fakeAccountabilityRepo) UpdateWithVersion(_ context.Context, _ *gorm.DB, row *types.AccountabilityScore, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyFor(row.UserID, row.PartnershipID)
	stored, ok := f.rows[k]
	if !ok || stored.Version != expectedVersion {
		return repos.ErrVersionConflict
	}
	row.Version = expectedVersion + 1
	cp := *row
	f.rows[k] = &cp
	return nil
}

type fakeGoalRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.Goal
}

func newFakeGoalRepo() *fakeGoalRepo {
	return &fakeGoalRepo{rows: map[uuid.UUID]*types.Goal{}}
}

func (f *fakeGoalRepo) Create(_ context.Context, _ *gorm.DB, goal *types.Goal) (*types.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now().UTC()
	}
	if goal.UpdatedAt.IsZero() {
		goal.UpdatedAt = goal.CreatedAt
	}
	cp := *goal
	f.rows[goal.ID] = &cp
	return goal, nil
}

func (f *fakeGoalRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGoalRepo) FindByCreator(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Goal
	for _, g := range f.rows {
		if g.CreatedBy == userID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeGoalRepo) FindByPartnership(_ context.Context, _ *gorm.DB, partnershipID uuid.UUID) ([]*types.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Goal
	for _, g := range f.rows {
		if g.PartnershipID != nil && *g.PartnershipID == partnershipID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeGoalRepo) FindActiveUpdatedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) ([]*types.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Goal
	for _, g := range f.rows {
		if g.Status == types.GoalActive && g.UpdatedAt.Before(cutoff) {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeGoalRepo) UpdateWithVersion(_ context.Context, _ *gorm.DB, goal *types.Goal, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.rows[goal.ID]
	if !ok || stored.Version != expectedVersion {
		return repos.ErrVersionConflict
	}
	goal.Version = expectedVersion + 1
	goal.UpdatedAt = time.Now().UTC()
	cp := *goal
	f.rows[goal.ID] = &cp
	return nil
}

type fakeMilestoneRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.Milestone
}

func newFakeMilestoneRepo() *fakeMilestoneRepo {
	return &fakeMilestoneRepo{rows: map[uuid.UUID]*types.Milestone{}}
}

func (f *fakeMilestoneRepo) Create(_ context.Context, _ *gorm.DB, m *types.Milestone) (*types.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	cp := *m
	f.rows[m.ID] = &cp
	return m, nil
}

func (f *fakeMilestoneRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMilestoneRepo) ListByGoal(_ context.Context, _ *gorm.DB, goalID uuid.UUID) ([]*types.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Milestone
	for _, m := range f.rows {
		if m.GoalID == goalID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeMilestoneRepo) NextPosition(_ context.Context, _ *gorm.DB, goalID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := 0
	for _, m := range f.rows {
		if m.GoalID == goalID && m.Position >= next {
			next = m.Position + 1
		}
	}
	return next, nil
}

func (f *fakeMilestoneRepo) Update(_ context.Context, _ *gorm.DB, m *types.Milestone) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.rows[m.ID] = &cp
	return nil
}

func (f *fakeMilestoneRepo) Reorder(_ context.Context, _ *gorm.DB, goalID uuid.UUID, orderedIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range orderedIDs {
		m, ok := f.rows[id]
		if !ok || m.GoalID != goalID {
			return gorm.ErrRecordNotFound
		}
		m.Position = i
	}
	return nil
}

type fakeCheckInRepo struct {
	mu   sync.Mutex
	rows []*types.CheckIn
}

func newFakeCheckInRepo() *fakeCheckInRepo {
	return &fakeCheckInRepo{}
}

func (f *fakeCheckInRepo) Create(_ context.Context, _ *gorm.DB, row *types.CheckIn) (*types.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	cp := *row
	f.rows = append(f.rows, &cp)
	return row, nil
}

func (f *fakeCheckInRepo) ListByPartnership(_ context.Context, _ *gorm.DB, partnershipID uuid.UUID, limit int) ([]*types.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.CheckIn
	for _, r := range f.rows {
		if r.PartnershipID == partnershipID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCheckInRepo) CountForUserSince(_ context.Context, _ *gorm.DB, partnershipID, userID uuid.UUID, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, r := range f.rows {
		if r.PartnershipID == partnershipID && r.UserID == userID && !r.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeCheckInRepo) LastForUser(_ context.Context, _ *gorm.DB, partnershipID, userID uuid.UUID) (*types.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *types.CheckIn
	for _, r := range f.rows {
		if r.PartnershipID == partnershipID && r.UserID == userID {
			if last == nil || r.CreatedAt.After(last.CreatedAt) {
				last = r
			}
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (f *fakeCheckInRepo) CheckinDaysForUserSince(_ context.Context, _ *gorm.DB, partnershipID, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []time.Time
	for _, r := range f.rows {
		if r.PartnershipID == partnershipID && r.UserID == userID && !r.CreatedAt.Before(since) {
			out = append(out, r.CreatedAt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out, nil
}

type fakeProgressRepo struct {
	mu   sync.Mutex
	rows []*types.GoalProgressEntry
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{}
}

func (f *fakeProgressRepo) Create(_ context.Context, _ *gorm.DB, entry *types.GoalProgressEntry) (*types.GoalProgressEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	cp := *entry
	f.rows = append(f.rows, &cp)
	return entry, nil
}

func (f *fakeProgressRepo) ListByGoal(_ context.Context, _ *gorm.DB, goalID uuid.UUID) ([]*types.GoalProgressEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.GoalProgressEntry
	for _, r := range f.rows {
		if r.GoalID == goalID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeProgressRepo) LastEntry(_ context.Context, _ *gorm.DB, goalID uuid.UUID) (*types.GoalProgressEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *types.GoalProgressEntry
	for _, r := range f.rows {
		if r.GoalID == goalID {
			if last == nil || r.CreatedAt.After(last.CreatedAt) {
				last = r
			}
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}
