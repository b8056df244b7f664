package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/platform/apierr"
	"github.com/focushive/buddy-service/internal/repos"
	"github.com/focushive/buddy-service/internal/types"
)

//go:embed templates.yaml
var goalTemplatesYAML []byte

// GoalTemplate is one entry from the embedded template catalog.
type GoalTemplate struct {
	Name          string   `yaml:"name" json:"name"`
	Category      string   `yaml:"category" json:"category"`
	Description   string   `yaml:"description" json:"description"`
	FocusAreas    []string `yaml:"focus_areas" json:"focus_areas"`
	SuggestedDays int      `yaml:"suggested_days" json:"suggested_days"`
	Milestones    []string `yaml:"milestones" json:"milestones"`
}

type goalTemplateFile struct {
	Templates []GoalTemplate `yaml:"templates"`
}

var (
	templateOnce    sync.Once
	templateCatalog []GoalTemplate
	templateErr     error
)

func loadTemplates() ([]GoalTemplate, error) {
	templateOnce.Do(func() {
		var file goalTemplateFile
		templateErr = yaml.Unmarshal(goalTemplatesYAML, &file)
		templateCatalog = file.Templates
	})
	return templateCatalog, templateErr
}

// Velocity trend labels for goal analytics.
const (
	TrendImproving = "IMPROVING"
	TrendSteady    = "STEADY"
	TrendDeclining = "DECLINING"
)

// GoalAnalytics is the derived progress report for one goal.
type GoalAnalytics struct {
	GoalID               uuid.UUID  `json:"goal_id"`
	CurrentProgress      int        `json:"current_progress"`
	AverageDailyProgress float64    `json:"average_daily_progress"`
	VelocityTrend        string     `json:"velocity_trend"`
	EstimatedCompletion  *time.Time `json:"estimated_completion,omitempty"`
	DaysUntilTarget      *int       `json:"days_until_target,omitempty"`
}

// CreateGoalRequest is the payload for creating a goal.
type CreateGoalRequest struct {
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Type          types.GoalType `json:"type"`
	PartnershipID *uuid.UUID     `json:"partnership_id,omitempty"`
	TargetDate    *time.Time     `json:"target_date,omitempty"`
}

// UpdateGoalRequest carries the mutable goal fields. Nil pointers keep the
// stored value.
type UpdateGoalRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
}

// MilestoneRequest is the payload for adding or updating a milestone.
type MilestoneRequest struct {
	Title   string     `json:"title"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

type GoalService interface {
	CreateGoal(ctx context.Context, actorID uuid.UUID, req CreateGoalRequest) (*types.Goal, error)
	GetGoal(ctx context.Context, goalID, actorID uuid.UUID) (*types.Goal, error)
	ListGoals(ctx context.Context, actorID uuid.UUID) ([]*types.Goal, error)
	UpdateGoal(ctx context.Context, goalID, actorID uuid.UUID, req UpdateGoalRequest) (*types.Goal, error)
	CancelGoal(ctx context.Context, goalID, actorID uuid.UUID) (*types.Goal, error)
	UpdateProgress(ctx context.Context, goalID, actorID uuid.UUID, percentage int) (*types.Goal, error)
	TrackDailyProgress(ctx context.Context, goalID, actorID uuid.UUID, percentage int, note string) (*types.Goal, error)
	ListProgress(ctx context.Context, goalID, actorID uuid.UUID) ([]*types.GoalProgressEntry, error)
	AddMilestone(ctx context.Context, goalID, actorID uuid.UUID, req MilestoneRequest) (*types.Milestone, error)
	UpdateMilestone(ctx context.Context, goalID, milestoneID, actorID uuid.UUID, req MilestoneRequest) (*types.Milestone, error)
	CompleteMilestone(ctx context.Context, goalID, milestoneID, actorID uuid.UUID) (*types.Milestone, error)
	ReorderMilestones(ctx context.Context, goalID, actorID uuid.UUID, orderedIDs []uuid.UUID) ([]*types.Milestone, error)
	ListMilestones(ctx context.Context, goalID, actorID uuid.UUID) ([]*types.Milestone, error)
	MilestoneCompletion(ctx context.Context, goalID, actorID uuid.UUID) (float64, error)
	OverallProgress(ctx context.Context, goalID, actorID uuid.UUID) (int, error)
	Analytics(ctx context.Context, goalID, actorID uuid.UUID) (*GoalAnalytics, error)
	DetectStagnation(ctx context.Context, goalID, actorID uuid.UUID, daysThreshold int) (bool, error)
	SuggestInterventions(ctx context.Context, goalID, actorID uuid.UUID) ([]string, error)
	ListTemplates(category string) ([]GoalTemplate, error)
	SuggestGoals(ctx context.Context, userID uuid.UUID, maxResults int) ([]GoalTemplate, error)
	SweepStagnantGoals(ctx context.Context, daysThreshold int) (int, error)
}

type goalService struct {
	db              *gorm.DB
	log             *logger.Logger
	goalRepo        repos.GoalRepo
	milestoneRepo   repos.MilestoneRepo
	progressRepo    repos.ProgressRepo
	partnershipRepo repos.PartnershipRepo
	preferencesRepo repos.PreferencesRepo
	checkins        CheckinService
	now             func() time.Time
}

func NewGoalService(
	db *gorm.DB,
	baseLog *logger.Logger,
	goalRepo repos.GoalRepo,
	milestoneRepo repos.MilestoneRepo,
	progressRepo repos.ProgressRepo,
	partnershipRepo repos.PartnershipRepo,
	preferencesRepo repos.PreferencesRepo,
	checkins CheckinService,
) GoalService {
	return &goalService{
		db:              db,
		log:             baseLog.With("service", "GoalService"),
		goalRepo:        goalRepo,
		milestoneRepo:   milestoneRepo,
		progressRepo:    progressRepo,
		partnershipRepo: partnershipRepo,
		preferencesRepo: preferencesRepo,
		checkins:        checkins,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *goalService) CreateGoal(ctx context.Context, actorID uuid.UUID, req CreateGoalRequest) (*types.Goal, error) {
	goal := &types.Goal{
		Title:         req.Title,
		Description:   req.Description,
		Type:          req.Type,
		PartnershipID: req.PartnershipID,
		CreatedBy:     actorID,
		Status:        types.GoalActive,
		TargetDate:    req.TargetDate,
	}
	if err := goal.Validate(); err != nil {
		return nil, apierr.Validation("%s", err)
	}
	if req.TargetDate != nil && req.TargetDate.Before(s.now()) {
		return nil, apierr.Validation("target date cannot be in the past")
	}

	if goal.Type == types.GoalShared {
		p, err := s.partnershipRepo.GetByID(ctx, nil, *goal.PartnershipID)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		if p == nil {
			return nil, apierr.NotFound("partnership")
		}
		if !p.InvolvesUser(actorID) {
			return nil, apierr.Forbidden("not a party to this partnership")
		}
	}

	created, err := s.goalRepo.Create(ctx, nil, goal)
	if err != nil {
		s.log.Error("CreateGoal: insert failed", "error", err)
		return nil, apierr.Internal(err)
	}
	return created, nil
}

func (s *goalService) GetGoal(ctx context.Context, goalID, actorID uuid.UUID) (*types.Goal, error) {
	return s.loadForActor(ctx, goalID, actorID)
}

// ListGoals returns the actor's own goals plus shared goals of their open
// partnerships.
func (s *goalService) ListGoals(ctx context.Context, actorID uuid.UUID) ([]*types.Goal, error) {
	own, err := s.goalRepo.FindByCreator(ctx, nil, actorID)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	seen := map[uuid.UUID]struct{}{}
	for _, g := range own {
		seen[g.ID] = struct{}{}
	}

	partnerships, err := s.partnershipRepo.FindOpenByUser(ctx, nil, actorID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	for _, p := range partnerships {
		shared, err := s.goalRepo.FindByPartnership(ctx, nil, p.ID)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		for _, g := range shared {
			if _, dup := seen[g.ID]; dup {
				continue
			}
			seen[g.ID] = struct{}{}
			own = append(own, g)
		}
	}
	sort.Slice(own, func(i, j int) bool { return own[i].CreatedAt.After(own[j].CreatedAt) })
	return own, nil
}

func (s *goalService) UpdateGoal(ctx context.Context, goalID, actorID uuid.UUID, req UpdateGoalRequest) (*types.Goal, error) {
	goal, err := s.loadForActor(ctx, goalID, actorID)
	if err != nil {
		return nil, err
	}
	if goal.Status != types.GoalActive {
		return nil, apierr.Conflict("invalid_transition", "only active goals can be updated")
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, apierr.Validation("goal title is required")
		}
		goal.Title = *req.Title
	}
	if req.Description != nil {
		goal.Description = *req.Description
	}
	if req.TargetDate != nil {
		if req.TargetDate.Before(s.now()) {
			return nil, apierr.Validation("target date cannot be in the past")
		}
		goal.TargetDate = req.TargetDate
	}

	if err := s.writeGoal(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// CancelGoal soft-cancels; only the creator may do it.
func (s *goalService) CancelGoal(ctx context.Context, goalID, actorID uuid.UUID) (*types.Goal, error) {
	goal, err := s.loadForActor(ctx, goalID, actorID)
	if err != nil {
		return nil, err
	}
	if goal.CreatedBy != actorID {
		return nil, apierr.Forbidden("only the goal creator may cancel it")
	}
	if goal.Status != types.GoalActive {
		return nil, apierr.Conflict("invalid_transition",
			"only active goals can be cancelled (status %s)", goal.Status)
	}

	goal.Status = types.GoalCancelled
	if err := s.writeGoal(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

func (s *goalService) UpdateProgress(ctx context.Context, goalID, actorID uuid.UUID, percentage int) (*types.Goal, error) {
	return s.recordProgress(ctx, goalID, actorID, percentage, "")
}

func (s *goalService) TrackDailyProgress(ctx context.Context, goalID, actorID uuid.UUID, percentage int, note string) (*types.Goal, error) {
	return s.recordProgress(ctx, goalID, actorID, percentage, note)
}

func (s *goalService) recordProgress(ctx context.Context, goalID, actorID uuid.UUID, percentage int, note string) (*types.Goal, error) {
	if percentage < 0 || percentage > 100 {
		return nil, apierr.Validation("progress percentage must be between 0 and 100")
	}
	goal, err := s.loadForActor(ctx, goalID, actorID)
	if err != nil {
		return nil, err
	}
	if goal.Status != types.GoalActive {
		return nil, apierr.Conflict("invalid_transition",
			"cannot record progress on a %s goal", goal.Status)
	}

	entry := &types.GoalProgressEntry{
		GoalID:     goal.ID,
		UserID:     actorID,
		Percentage: percentage,
		Note:       note,
	}
	if _, err := s.progressRepo.Create(ctx, nil, entry); err != nil {
		return nil, apierr.Internal(err)
	}

	goal.ProgressPercentage = percentage
	if percentage == 100 {
		now := s.now()
		goal.Status = types.GoalCompleted
		goal.CompletedAt = &now
	}
	if err := s.writeGoal(ctx, goal); err != nil {
		return nil, err
	}

	if goal.Status == types.GoalCompleted && s.checkins != nil {
		if err := s.checkins.RecordGoalAchieved(ctx, actorID, goal.PartnershipID); err != nil {
			s.log.Warn("recordProgress: goal-achieved bump failed", "error", err, "goal_id", goal.ID)
		}
	}
	return goal, nil
}

func (s *goalService) ListProgress(ctx context.Context, goalID, actorID uuid.UUID) ([]*types.GoalProgressEntry, error) {
	if _, err := s.loadForActor(ctx, goalID, actorID); err != nil {
		return nil, err
	}
	entries, err := s.progressRepo.ListByGoal(ctx, nil, goalID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return entries, nil
}

func (s *goalService) AddMilestone(ctx context.Context, goalID, actorID uuid.UUID, req MilestoneRequest) (*types.Milestone, error) {
	if req.Title == "" {
		return nil, apierr.Validation("milestone title is required")
	}
	goal, err := s.loadForActor(ctx, goalID, actorID)
	if err != nil {
		return nil, err
	}
	if goal.Status != types.GoalActive {
		return nil, apierr.Conflict("invalid_transition", "cannot add milestones to a %s goal", goal.Status)
	}

	position, err := s.milestoneRepo.NextPosition(ctx, nil, goalID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	m := &types.Milestone{
		GoalID:   goalID,
		Title:    req.Title,
		Position: position,
		DueDate:  req.DueDate,
	}
	created, err := s.milestoneRepo.Create(ctx, nil, m)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return created, nil
}

func (s *goalService) UpdateMilestone(ctx context.Context, goalID, milestoneID, actorID uuid.UUID, req MilestoneRequest) (*types.Milestone, error) {
	m, err := s.loadMilestone(ctx, goalID, milestoneID, actorID)
	if err != nil {
		return nil, err
	}
	if req.Title != "" {
		m.Title = req.Title
	}
	if req.DueDate != nil {
		m.DueDate = req.DueDate
	}
	if err := s.milestoneRepo.Update(ctx, nil, m); err != nil {
		return nil, apierr.Internal(err)
	}
	return m, nil
}

// CompleteMilestone marks the milestone done and folds the new completion
// ratio into the goal's derived progress when the goal has no direct updates.
func (s *goalService) CompleteMilestone(ctx context.Context, goalID, milestoneID, actorID uuid.UUID) (*types.Milestone, error) {
	m, err := s.loadMilestone(ctx, goalID, milestoneID, actorID)
	if err != nil {
		return nil, err
	}
	if m.Completed {
		return m, nil
	}
	now := s.now()
	m.Completed = true
	m.CompletedAt = &now
	if err := s.milestoneRepo.Update(ctx, nil, m); err != nil {
		return nil, apierr.Internal(err)
	}

	// Directly-reported progress wins; milestone completions only drive the
	// percentage on goals tracked through milestones alone.
	last, err := s.progressRepo.LastEntry(ctx, nil, goalID)
	if err != nil {
		s.log.Warn("CompleteMilestone: progress lookup failed", "error", err, "goal_id", goalID)
		return m, nil
	}
	if last != nil {
		return m, nil
	}
	ratio, err := s.MilestoneCompletion(ctx, goalID, actorID)
	if err != nil {
		s.log.Warn("CompleteMilestone: derived progress failed", "error", err, "goal_id", goalID)
		return m, nil
	}
	progress := int(math.Round(ratio * 100))
	goal, err := s.loadForActor(ctx, goalID, actorID)
	if err != nil {
		return m, nil
	}
	if goal.Status == types.GoalActive && progress != goal.ProgressPercentage {
		goal.ProgressPercentage = progress
		if progress == 100 {
			goal.Status = types.GoalCompleted
			goal.CompletedAt = &now
		}
		if err := s.writeGoal(ctx, goal); err != nil {
			s.log.Warn("CompleteMilestone: goal update failed", "error", err, "goal_id", goalID)
		}
	}
	return m, nil
}

// ReorderMilestones requires a full permutation of the goal's milestone ids.
func (s *goalService) ReorderMilestones(ctx context.Context, goalID, actorID uuid.UUID, orderedIDs []uuid.UUID) ([]*types.Milestone, error) {
	if _, err := s.loadForActor(ctx, goalID, actorID); err != nil {
		return nil, err
	}
	existing, err := s.milestoneRepo.ListByGoal(ctx, nil, goalID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if len(orderedIDs) != len(existing) {
		return nil, apierr.Validation("reorder must list all %d milestones", len(existing))
	}
	known := make(map[uuid.UUID]struct{}, len(existing))
	for _, m := range existing {
		known[m.ID] = struct{}{}
	}
	seen := make(map[uuid.UUID]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, ok := known[id]; !ok {
			return nil, apierr.Validation("unknown milestone id %s", id)
		}
		if _, dup := seen[id]; dup {
			return nil, apierr.Validation("duplicate milestone id %s", id)
		}
		seen[id] = struct{}{}
	}

	if err := s.milestoneRepo.Reorder(ctx, nil, goalID, orderedIDs); err != nil {
		return nil, apierr.Internal(err)
	}
	return s.milestoneRepo.ListByGoal(ctx, nil, goalID)
}

func (s *goalService) ListMilestones(ctx context.Context, goalID, actorID uuid.UUID) ([]*types.Milestone, error) {
	if _, err := s.loadForActor(ctx, goalID, actorID); err != nil {
		return nil, err
	}
	milestones, err := s.milestoneRepo.ListByGoal(ctx, nil, goalID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return milestones, nil
}

// MilestoneCompletion returns the completed/total ratio, zero when the goal
// has no milestones.
func (s *goalService) MilestoneCompletion(ctx context.Context, goalID, actorID uuid.UUID) (float64, error) {
	milestones, err := s.ListMilestones(ctx, goalID, actorID)
	if err != nil {
		return 0, err
	}
	if len(milestones) == 0 {
		return 0, nil
	}
	completed := 0
	for _, m := range milestones {
		if m.Completed {
			completed++
		}
	}
	return float64(completed) / float64(len(milestones)), nil
}

// OverallProgress prefers the directly-reported percentage; a goal tracked
// only through milestones derives its progress from the completion ratio,
// rounded to the nearest whole percent.
func (s *goalService) OverallProgress(ctx context.Context, goalID, actorID uuid.UUID) (int, error) {
	goal, err := s.loadForActor(ctx, goalID, actorID)
	if err != nil {
		return 0, err
	}

	last, err := s.progressRepo.LastEntry(ctx, nil, goalID)
	if err != nil {
		return 0, apierr.Internal(err)
	}
	if last != nil || goal.ProgressPercentage > 0 {
		return goal.ProgressPercentage, nil
	}

	ratio, err := s.MilestoneCompletion(ctx, goalID, actorID)
	if err != nil {
		return 0, err
	}
	return int(math.Round(ratio * 100)), nil
}

func (s *goalService) Analytics(ctx context.Context, goalID, actorID uuid.UUID) (*GoalAnalytics, error) {
	goal, err := s.loadForActor(ctx, goalID, actorID)
	if err != nil {
		return nil, err
	}
	entries, err := s.progressRepo.ListByGoal(ctx, nil, goalID)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	analytics := &GoalAnalytics{
		GoalID:          goal.ID,
		CurrentProgress: goal.ProgressPercentage,
		VelocityTrend:   TrendSteady,
	}
	if goal.TargetDate != nil {
		days := int(math.Ceil(goal.TargetDate.Sub(s.now()).Hours() / 24))
		analytics.DaysUntilTarget = &days
	}

	daily := lastPerDay(entries)
	if len(daily) < 2 {
		return analytics, nil
	}

	deltas := make([]float64, 0, len(daily)-1)
	for i := 1; i < len(daily); i++ {
		dayGap := daily[i].day.Sub(daily[i-1].day).Hours() / 24
		if dayGap <= 0 {
			continue
		}
		deltas = append(deltas, float64(daily[i].pct-daily[i-1].pct)/dayGap)
	}
	if len(deltas) == 0 {
		return analytics, nil
	}

	var sum float64
	for _, d := range deltas {
		sum += d
	}
	avg := sum / float64(len(deltas))
	analytics.AverageDailyProgress = avg

	// trend: compare the latest delta against the running average
	latest := deltas[len(deltas)-1]
	switch {
	case latest > avg*1.1:
		analytics.VelocityTrend = TrendImproving
	case latest < avg*0.9:
		analytics.VelocityTrend = TrendDeclining
	}

	if avg > 0 && goal.ProgressPercentage < 100 {
		remaining := float64(100 - goal.ProgressPercentage)
		eta := s.now().AddDate(0, 0, int(math.Ceil(remaining/avg)))
		analytics.EstimatedCompletion = &eta
	}
	return analytics, nil
}

// DetectStagnation reports whether an uncompleted goal has seen no progress
// activity within the threshold window.
func (s *goalService) DetectStagnation(ctx context.Context, goalID, actorID uuid.UUID, daysThreshold int) (bool, error) {
	if daysThreshold < 1 {
		return false, apierr.Validation("stagnation threshold must be at least 1 day")
	}
	goal, err := s.loadForActor(ctx, goalID, actorID)
	if err != nil {
		return false, err
	}
	return s.isStagnant(ctx, goal, daysThreshold)
}

func (s *goalService) isStagnant(ctx context.Context, goal *types.Goal, daysThreshold int) (bool, error) {
	if goal.Status != types.GoalActive {
		return false, nil
	}
	cutoff := s.now().AddDate(0, 0, -daysThreshold)

	last, err := s.progressRepo.LastEntry(ctx, nil, goal.ID)
	if err != nil {
		return false, apierr.Internal(err)
	}
	if last != nil && last.CreatedAt.After(cutoff) {
		return false, nil
	}
	if last == nil && goal.UpdatedAt.After(cutoff) {
		return false, nil
	}
	return true, nil
}

// SuggestInterventions builds the ordered nudge list for a goal; non-empty
// whenever the goal is stagnant.
func (s *goalService) SuggestInterventions(ctx context.Context, goalID, actorID uuid.UUID) ([]string, error) {
	const threshold = 7

	goal, err := s.loadForActor(ctx, goalID, actorID)
	if err != nil {
		return nil, err
	}
	stagnant, err := s.isStagnant(ctx, goal, threshold)
	if err != nil {
		return nil, err
	}
	milestones, err := s.milestoneRepo.ListByGoal(ctx, nil, goalID)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	interventions := []string{}
	if stagnant {
		interventions = append(interventions, "Ask your buddy to nudge you; this goal has stalled")
		longStagnant, err := s.isStagnant(ctx, goal, 2*threshold)
		if err == nil && longStagnant {
			interventions = append(interventions, "Schedule a check-in dedicated to this goal")
		}
	}
	remaining := 100 - goal.ProgressPercentage
	if len(milestones) == 0 || remaining > 50 {
		interventions = append(interventions, "Break the remaining work into smaller milestones")
	}
	if goal.TargetDate != nil {
		untilTarget := goal.TargetDate.Sub(s.now())
		if untilTarget > 0 && untilTarget <= 14*24*time.Hour && goal.ProgressPercentage < 50 {
			interventions = append(interventions, "Set daily targets; the target date is close and progress is behind")
		}
	}
	return interventions, nil
}

func (s *goalService) ListTemplates(category string) ([]GoalTemplate, error) {
	catalog, err := loadTemplates()
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if category == "" {
		return catalog, nil
	}
	filtered := []GoalTemplate{}
	for _, t := range catalog {
		if t.Category == category {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// SuggestGoals ranks templates by overlap with the user's preferred focus
// areas; users without preferences get the catalog head.
func (s *goalService) SuggestGoals(ctx context.Context, userID uuid.UUID, maxResults int) ([]GoalTemplate, error) {
	if maxResults < 1 {
		return nil, apierr.Validation("max results must be at least 1")
	}
	catalog, err := loadTemplates()
	if err != nil {
		return nil, apierr.Internal(err)
	}

	var preferred []string
	prefs, err := s.preferencesRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if prefs != nil && len(prefs.PreferredFocusAreas) > 0 {
		if err := json.Unmarshal(prefs.PreferredFocusAreas, &preferred); err != nil {
			preferred = nil
		}
	}

	type ranked struct {
		template GoalTemplate
		overlap  int
	}
	preferredSet := make(map[string]struct{}, len(preferred))
	for _, area := range preferred {
		preferredSet[area] = struct{}{}
	}
	rankedList := make([]ranked, 0, len(catalog))
	for _, t := range catalog {
		overlap := 0
		for _, area := range t.FocusAreas {
			if _, ok := preferredSet[area]; ok {
				overlap++
			}
		}
		rankedList = append(rankedList, ranked{template: t, overlap: overlap})
	}
	sort.SliceStable(rankedList, func(i, j int) bool { return rankedList[i].overlap > rankedList[j].overlap })

	if maxResults > len(rankedList) {
		maxResults = len(rankedList)
	}
	out := make([]GoalTemplate, 0, maxResults)
	for _, r := range rankedList[:maxResults] {
		out = append(out, r.template)
	}
	return out, nil
}

// SweepStagnantGoals flags stagnant active goals, individual and shared
// alike. Detection only; nothing is mutated, so reruns are harmless.
func (s *goalService) SweepStagnantGoals(ctx context.Context, daysThreshold int) (int, error) {
	cutoff := s.now().AddDate(0, 0, -daysThreshold)
	goals, err := s.goalRepo.FindActiveUpdatedBefore(ctx, nil, cutoff)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, g := range goals {
		// stale updated_at alone is not stagnation; a recent progress entry
		// still keeps the goal moving
		stagnant, err := s.isStagnant(ctx, g, daysThreshold)
		if err != nil {
			s.log.Warn("SweepStagnantGoals: skipping goal", "error", err, "goal_id", g.ID)
			continue
		}
		if !stagnant {
			continue
		}
		flagged++
		s.log.Info("stagnant goal detected", "goal_id", g.ID,
			"type", g.Type, "threshold_days", daysThreshold)
	}
	return flagged, nil
}

// loadForActor authorizes goal access: the creator always, and for shared
// goals either party to the partnership.
func (s *goalService) loadForActor(ctx context.Context, goalID, actorID uuid.UUID) (*types.Goal, error) {
	goal, err := s.goalRepo.GetByID(ctx, nil, goalID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if goal == nil {
		return nil, apierr.NotFound("goal")
	}
	if goal.CreatedBy == actorID {
		return goal, nil
	}
	if goal.Type == types.GoalShared && goal.PartnershipID != nil {
		p, err := s.partnershipRepo.GetByID(ctx, nil, *goal.PartnershipID)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		if p != nil && p.InvolvesUser(actorID) {
			return goal, nil
		}
	}
	return nil, apierr.Forbidden("no access to this goal")
}

func (s *goalService) loadMilestone(ctx context.Context, goalID, milestoneID, actorID uuid.UUID) (*types.Milestone, error) {
	if _, err := s.loadForActor(ctx, goalID, actorID); err != nil {
		return nil, err
	}
	m, err := s.milestoneRepo.GetByID(ctx, nil, milestoneID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if m == nil || m.GoalID != goalID {
		return nil, apierr.NotFound("milestone")
	}
	return m, nil
}

func (s *goalService) writeGoal(ctx context.Context, goal *types.Goal) error {
	if err := s.goalRepo.UpdateWithVersion(ctx, nil, goal, goal.Version); err != nil {
		if errors.Is(err, repos.ErrVersionConflict) {
			return apierr.Conflict("version_conflict", "goal was modified concurrently")
		}
		return apierr.Internal(err)
	}
	return nil
}

type dailyPoint struct {
	day time.Time
	pct int
}

// lastPerDay collapses a progress series to the last value of each calendar
// day, ordered ascending.
func lastPerDay(entries []*types.GoalProgressEntry) []dailyPoint {
	byDay := map[string]dailyPoint{}
	for _, e := range entries {
		day := e.CreatedAt.UTC().Truncate(24 * time.Hour)
		key := day.Format("2006-01-02")
		existing, ok := byDay[key]
		if !ok || !day.Before(existing.day) {
			byDay[key] = dailyPoint{day: day, pct: e.Percentage}
		}
	}
	points := make([]dailyPoint, 0, len(byDay))
	for _, p := range byDay {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].day.Before(points[j].day) })
	return points
}
