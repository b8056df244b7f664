package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/platform/apierr"
	"github.com/focushive/buddy-service/internal/repos"
	"github.com/focushive/buddy-service/internal/types"
)

// CheckinRequest is the payload for recording one check-in.
type CheckinRequest struct {
	Type               types.CheckInType `json:"type"`
	Mood               types.Mood        `json:"mood,omitempty"`
	ProductivityRating int               `json:"productivity_rating"`
	FocusHours         float64           `json:"focus_hours"`
	Note               string            `json:"note,omitempty"`
}

// AccountabilityReport is a score row plus its derived presentation fields.
type AccountabilityReport struct {
	UserID            uuid.UUID  `json:"user_id"`
	PartnershipID     *uuid.UUID `json:"partnership_id,omitempty"`
	Score             float64    `json:"score"`
	Band              string     `json:"band"`
	CheckinsCompleted int        `json:"checkins_completed"`
	GoalsAchieved     int        `json:"goals_achieved"`
	ResponseRate      float64    `json:"response_rate"`
	StreakDays        int        `json:"streak_days"`
	OnStreak          bool       `json:"on_streak"`
	OnLongStreak      bool       `json:"on_long_streak"`
	CalculatedAt      time.Time  `json:"calculated_at"`
}

// PartnerComparison pairs the two parties' reports for one partnership.
type PartnerComparison struct {
	PartnershipID uuid.UUID              `json:"partnership_id"`
	Reports       []AccountabilityReport `json:"reports"`
}

type CheckinService interface {
	CreateCheckin(ctx context.Context, actorID, partnershipID uuid.UUID, req CheckinRequest) (*types.CheckIn, error)
	ListCheckins(ctx context.Context, actorID, partnershipID uuid.UUID, limit int) ([]*types.CheckIn, error)
	GetScore(ctx context.Context, userID uuid.UUID, partnershipID *uuid.UUID) (*AccountabilityReport, error)
	CompareWithPartner(ctx context.Context, actorID, partnershipID uuid.UUID) (*PartnerComparison, error)
	SuggestScoreImprovement(ctx context.Context, userID uuid.UUID, partnershipID *uuid.UUID) ([]string, error)
	RecordGoalAchieved(ctx context.Context, userID uuid.UUID, partnershipID *uuid.UUID) error
}

type checkinService struct {
	db              *gorm.DB
	log             *logger.Logger
	weights         AccountabilityWeights
	checkinRepo     repos.CheckInRepo
	accountRepo     repos.AccountabilityRepo
	partnershipRepo repos.PartnershipRepo
	partnerships    PartnershipService
	now             func() time.Time
}

func NewCheckinService(
	db *gorm.DB,
	baseLog *logger.Logger,
	weights AccountabilityWeights,
	checkinRepo repos.CheckInRepo,
	accountRepo repos.AccountabilityRepo,
	partnershipRepo repos.PartnershipRepo,
	partnerships PartnershipService,
) CheckinService {
	return &checkinService{
		db:              db,
		log:             baseLog.With("service", "CheckinService"),
		weights:         weights,
		checkinRepo:     checkinRepo,
		accountRepo:     accountRepo,
		partnershipRepo: partnershipRepo,
		partnerships:    partnerships,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *checkinService) CreateCheckin(ctx context.Context, actorID, partnershipID uuid.UUID, req CheckinRequest) (*types.CheckIn, error) {
	p, err := s.loadActivePartnership(ctx, actorID, partnershipID)
	if err != nil {
		return nil, err
	}

	if !types.ValidCheckInType(req.Type) {
		return nil, apierr.Validation("unknown check-in type %q", req.Type)
	}
	if req.Mood != "" && !types.ValidMood(req.Mood) {
		return nil, apierr.Validation("unknown mood %q", req.Mood)
	}
	if req.ProductivityRating != 0 && (req.ProductivityRating < 1 || req.ProductivityRating > 10) {
		return nil, apierr.Validation("productivity rating must be between 1 and 10")
	}
	if req.FocusHours < 0 || req.FocusHours > 24 {
		return nil, apierr.Validation("focus hours must be between 0 and 24")
	}

	row := &types.CheckIn{
		PartnershipID:      p.ID,
		UserID:             actorID,
		Type:               req.Type,
		Mood:               req.Mood,
		ProductivityRating: req.ProductivityRating,
		FocusHours:         req.FocusHours,
		Note:               req.Note,
	}
	created, err := s.checkinRepo.Create(ctx, nil, row)
	if err != nil {
		s.log.Error("CreateCheckin: insert failed", "error", err, "partnership_id", p.ID)
		return nil, apierr.Internal(err)
	}

	if err := s.partnerships.RecordInteraction(ctx, p.ID); err != nil {
		s.log.Warn("CreateCheckin: interaction bump failed", "error", err, "partnership_id", p.ID)
	}
	if err := s.recalculate(ctx, actorID, &p.ID); err != nil {
		s.log.Warn("CreateCheckin: score recompute failed", "error", err, "user_id", actorID)
	}
	return created, nil
}

func (s *checkinService) ListCheckins(ctx context.Context, actorID, partnershipID uuid.UUID, limit int) ([]*types.CheckIn, error) {
	p, err := s.partnershipRepo.GetByID(ctx, nil, partnershipID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if p == nil {
		return nil, apierr.NotFound("partnership")
	}
	if !p.InvolvesUser(actorID) {
		return nil, apierr.Forbidden("not a party to this partnership")
	}

	rows, err := s.checkinRepo.ListByPartnership(ctx, nil, partnershipID, limit)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return rows, nil
}

func (s *checkinService) GetScore(ctx context.Context, userID uuid.UUID, partnershipID *uuid.UUID) (*AccountabilityReport, error) {
	row, err := s.accountRepo.GetByUserAndPartnership(ctx, nil, userID, partnershipID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if row == nil {
		row = &types.AccountabilityScore{
			UserID:        userID,
			PartnershipID: partnershipID,
			CalculatedAt:  s.now(),
		}
		if _, err := s.accountRepo.Create(ctx, nil, row); err != nil {
			if !errors.Is(err, repos.ErrDuplicateScore) {
				return nil, apierr.Internal(err)
			}
			// a concurrent first read created the row; use theirs
			row, err = s.accountRepo.GetByUserAndPartnership(ctx, nil, userID, partnershipID)
			if err != nil {
				return nil, apierr.Internal(err)
			}
			if row == nil {
				return nil, apierr.Internal(repos.ErrDuplicateScore)
			}
		}
	}
	report := s.report(row)
	return &report, nil
}

func (s *checkinService) CompareWithPartner(ctx context.Context, actorID, partnershipID uuid.UUID) (*PartnerComparison, error) {
	p, err := s.partnershipRepo.GetByID(ctx, nil, partnershipID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if p == nil {
		return nil, apierr.NotFound("partnership")
	}
	if !p.InvolvesUser(actorID) {
		return nil, apierr.Forbidden("not a party to this partnership")
	}

	comparison := &PartnerComparison{PartnershipID: partnershipID}
	for _, userID := range []uuid.UUID{p.User1ID, p.User2ID} {
		report, err := s.GetScore(ctx, userID, &partnershipID)
		if err != nil {
			return nil, err
		}
		comparison.Reports = append(comparison.Reports, *report)
	}
	return comparison, nil
}

// SuggestScoreImprovement returns targeted advice ordered by the weakest
// component of the user's score.
func (s *checkinService) SuggestScoreImprovement(ctx context.Context, userID uuid.UUID, partnershipID *uuid.UUID) ([]string, error) {
	report, err := s.GetScore(ctx, userID, partnershipID)
	if err != nil {
		return nil, err
	}

	suggestions := []string{}
	if report.CheckinsCompleted < s.weights.CheckinCap {
		suggestions = append(suggestions, "Check in daily; regular check-ins are the largest part of your score")
	}
	if report.StreakDays < 3 {
		suggestions = append(suggestions, "Build a streak of at least 3 consecutive daily check-ins")
	}
	if report.ResponseRate < 0.8 {
		suggestions = append(suggestions, "Respond to your buddy's check-ins to raise your response rate")
	}
	if report.GoalsAchieved < s.weights.GoalCap {
		suggestions = append(suggestions, "Complete a shared goal with your buddy")
	}
	return suggestions, nil
}

func (s *checkinService) RecordGoalAchieved(ctx context.Context, userID uuid.UUID, partnershipID *uuid.UUID) error {
	return s.mutateScore(ctx, userID, partnershipID, func(row *types.AccountabilityScore) {
		row.GoalsAchieved++
	})
}

// recalculate refreshes counters from the check-in log and rewrites the
// blended score.
func (s *checkinService) recalculate(ctx context.Context, userID uuid.UUID, partnershipID *uuid.UUID) error {
	weekAgo := s.now().Add(-7 * 24 * time.Hour)
	var checkins int64
	var streak int
	var responseRate *float64
	if partnershipID != nil {
		count, err := s.checkinRepo.CountForUserSince(ctx, nil, *partnershipID, userID, weekAgo)
		if err != nil {
			return err
		}
		checkins = count
		streak, err = s.streakDays(ctx, *partnershipID, userID)
		if err != nil {
			return err
		}
		responseRate, err = s.responseRate(ctx, *partnershipID, userID, weekAgo)
		if err != nil {
			return err
		}
	}

	return s.mutateScore(ctx, userID, partnershipID, func(row *types.AccountabilityScore) {
		row.CheckinsCompleted = int(checkins)
		row.StreakDays = streak
		if responseRate != nil {
			row.ResponseRate = *responseRate
		}
	})
}

// responseRate is the share of the partner's recent check-in days the user
// also checked in on. Nil when the partner has nothing to respond to, so the
// stored value stands.
func (s *checkinService) responseRate(ctx context.Context, partnershipID, userID uuid.UUID, since time.Time) (*float64, error) {
	p, err := s.partnershipRepo.GetByID(ctx, nil, partnershipID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	partnerID := p.PartnerOf(userID)

	partnerDays, err := s.checkinDaySet(ctx, partnershipID, partnerID, since)
	if err != nil {
		return nil, err
	}
	if len(partnerDays) == 0 {
		return nil, nil
	}
	userDays, err := s.checkinDaySet(ctx, partnershipID, userID, since)
	if err != nil {
		return nil, err
	}

	responded := 0
	for day := range partnerDays {
		if _, ok := userDays[day]; ok {
			responded++
		}
	}
	rate := float64(responded) / float64(len(partnerDays))
	return &rate, nil
}

func (s *checkinService) checkinDaySet(ctx context.Context, partnershipID, userID uuid.UUID, since time.Time) (map[string]struct{}, error) {
	stamps, err := s.checkinRepo.CheckinDaysForUserSince(ctx, nil, partnershipID, userID, since)
	if err != nil {
		return nil, err
	}
	days := make(map[string]struct{}, len(stamps))
	for _, ts := range stamps {
		days[ts.UTC().Format("2006-01-02")] = struct{}{}
	}
	return days, nil
}

// mutateScore applies mutate to the user's score row under the optimistic
// lock, recomputing the blended score before the write. One retry on version
// conflict.
func (s *checkinService) mutateScore(ctx context.Context, userID uuid.UUID, partnershipID *uuid.UUID, mutate func(*types.AccountabilityScore)) error {
	for attempt := 0; attempt < 2; attempt++ {
		row, err := s.accountRepo.GetByUserAndPartnership(ctx, nil, userID, partnershipID)
		if err != nil {
			return err
		}
		if row == nil {
			row = &types.AccountabilityScore{
				UserID:        userID,
				PartnershipID: partnershipID,
			}
			if _, err := s.accountRepo.Create(ctx, nil, row); err != nil {
				if errors.Is(err, repos.ErrDuplicateScore) {
					// another writer created the row; re-read and mutate it
					continue
				}
				return err
			}
		}

		mutate(row)
		row.Score = CalculateAccountability(s.weights,
			row.CheckinsCompleted, row.GoalsAchieved, row.ResponseRate, row.StreakDays)
		row.CalculatedAt = s.now()

		err = s.accountRepo.UpdateWithVersion(ctx, nil, row, row.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repos.ErrVersionConflict) {
			return err
		}
	}
	return apierr.Conflict("version_conflict", "accountability score was modified concurrently")
}

// streakDays counts the run of consecutive calendar days with at least one
// check-in, ending today or yesterday.
func (s *checkinService) streakDays(ctx context.Context, partnershipID, userID uuid.UUID) (int, error) {
	since := s.now().Add(-60 * 24 * time.Hour)
	days, err := s.checkinDaySet(ctx, partnershipID, userID, since)
	if err != nil {
		return 0, err
	}
	if len(days) == 0 {
		return 0, nil
	}

	today := s.now().Truncate(24 * time.Hour)
	cursor := today
	if _, ok := days[cursor.Format("2006-01-02")]; !ok {
		// a streak may still be alive if the user checked in yesterday
		cursor = cursor.AddDate(0, 0, -1)
	}

	streak := 0
	for {
		if _, ok := days[cursor.Format("2006-01-02")]; !ok {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak, nil
}

func (s *checkinService) loadActivePartnership(ctx context.Context, actorID, partnershipID uuid.UUID) (*types.BuddyPartnership, error) {
	p, err := s.partnershipRepo.GetByID(ctx, nil, partnershipID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if p == nil {
		return nil, apierr.NotFound("partnership")
	}
	if !p.InvolvesUser(actorID) {
		return nil, apierr.Forbidden("not a party to this partnership")
	}
	if p.Status != types.PartnershipActive {
		return nil, apierr.Conflict("invalid_transition",
			"check-ins require an active partnership (status %s)", p.Status)
	}
	return p, nil
}

func (s *checkinService) report(row *types.AccountabilityScore) AccountabilityReport {
	return AccountabilityReport{
		UserID:            row.UserID,
		PartnershipID:     row.PartnershipID,
		Score:             row.Score,
		Band:              AccountabilityBand(row.Score),
		CheckinsCompleted: row.CheckinsCompleted,
		GoalsAchieved:     row.GoalsAchieved,
		ResponseRate:      row.ResponseRate,
		StreakDays:        row.StreakDays,
		OnStreak:          IsOnStreak(row.StreakDays),
		OnLongStreak:      IsOnLongStreak(row.StreakDays),
		CalculatedAt:      row.CalculatedAt,
	}
}
