package services

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/focushive/buddy-service/internal/clients/redis"
	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/platform/apierr"
	"github.com/focushive/buddy-service/internal/repos"
	"github.com/focushive/buddy-service/internal/types"
)

const (
	maxSuggestionLimit = 100
)

// MatchSuggestion is one scored candidate from the matching queue.
type MatchSuggestion struct {
	UserID      uuid.UUID          `json:"user_id"`
	DisplayName string             `json:"display_name,omitempty"`
	Score       CompatibilityScore `json:"score"`
}

type MatchingService interface {
	JoinQueue(ctx context.Context, userID uuid.UUID) error
	LeaveQueue(ctx context.Context, userID uuid.UUID) error
	QueueStatus(ctx context.Context, userID uuid.UUID) (bool, error)
	QueueSize(ctx context.Context) (int64, error)
	SuggestMatches(ctx context.Context, userID uuid.UUID, limit int, threshold *float64) ([]MatchSuggestion, error)
	CalculateCompatibility(ctx context.Context, userID, otherID uuid.UUID, threshold float64) (CompatibilityScore, error)
	GetPreferences(ctx context.Context, userID uuid.UUID) (*types.MatchingPreferences, error)
	UpdatePreferences(ctx context.Context, userID uuid.UUID, update PreferencesUpdate) (*types.MatchingPreferences, error)
}

// PreferencesUpdate carries the mutable preference fields. Nil pointers keep
// the stored value.
type PreferencesUpdate struct {
	MatchingEnabled     *bool
	MinCompatibility    *float64
	PreferredFocusAreas []string
	MaxPartners         *int
}

type matchingService struct {
	db              *gorm.DB
	log             *logger.Logger
	scorer          *Scorer
	queue           redis.MatchQueue
	profileRepo     repos.UserProfileRepo
	preferencesRepo repos.PreferencesRepo
	partnershipRepo repos.PartnershipRepo
}

func NewMatchingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	scorer *Scorer,
	queue redis.MatchQueue,
	profileRepo repos.UserProfileRepo,
	preferencesRepo repos.PreferencesRepo,
	partnershipRepo repos.PartnershipRepo,
) MatchingService {
	return &matchingService{
		db:              db,
		log:             baseLog.With("service", "MatchingService"),
		scorer:          scorer,
		queue:           queue,
		profileRepo:     profileRepo,
		preferencesRepo: preferencesRepo,
		partnershipRepo: partnershipRepo,
	}
}

func (s *matchingService) JoinQueue(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return apierr.Validation("missing user id")
	}
	if err := s.queue.Join(ctx, userID); err != nil {
		s.log.Error("JoinQueue: queue write failed", "error", err, "user_id", userID)
		return apierr.Internal(err)
	}
	return nil
}

func (s *matchingService) LeaveQueue(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return apierr.Validation("missing user id")
	}
	if err := s.queue.Leave(ctx, userID); err != nil {
		s.log.Error("LeaveQueue: queue write failed", "error", err, "user_id", userID)
		return apierr.Internal(err)
	}
	return nil
}

func (s *matchingService) QueueStatus(ctx context.Context, userID uuid.UUID) (bool, error) {
	queued, err := s.queue.Contains(ctx, userID)
	if err != nil {
		return false, apierr.Internal(err)
	}
	return queued, nil
}

func (s *matchingService) QueueSize(ctx context.Context) (int64, error) {
	size, err := s.queue.Size(ctx)
	if err != nil {
		return 0, apierr.Internal(err)
	}
	return size, nil
}

func (s *matchingService) SuggestMatches(ctx context.Context, userID uuid.UUID, limit int, threshold *float64) ([]MatchSuggestion, error) {
	if limit < 1 || limit > maxSuggestionLimit {
		return nil, apierr.Validation("limit must be between 1 and %d", maxSuggestionLimit)
	}

	requester, err := s.loadCandidate(ctx, userID)
	if err != nil {
		return nil, err
	}

	minScore := requester.Preferences.MinCompatibility
	if threshold != nil {
		minScore = *threshold
	}

	// A requester already at their own open-partnership limit gets no
	// suggestions rather than an error.
	openCount, err := s.partnershipRepo.CountOpenByUser(ctx, nil, userID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if openCount >= int64(requester.Preferences.MaxPartners) {
		return []MatchSuggestion{}, nil
	}

	members, err := s.queue.Members(ctx)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	suggestions := make([]MatchSuggestion, 0, len(members))
	for _, candidateID := range members {
		if candidateID == userID {
			continue
		}
		candidate, err := s.loadCandidate(ctx, candidateID)
		if err != nil {
			s.log.Warn("SuggestMatches: skipping candidate", "error", err, "candidate_id", candidateID)
			continue
		}
		if !candidate.Preferences.MatchingEnabled {
			continue
		}
		candidateOpen, err := s.partnershipRepo.CountOpenByUser(ctx, nil, candidateID)
		if err != nil {
			s.log.Warn("SuggestMatches: skipping candidate", "error", err, "candidate_id", candidateID)
			continue
		}
		if candidateOpen >= int64(candidate.Preferences.MaxPartners) {
			continue
		}
		existing, err := s.partnershipRepo.GetOpenByPair(ctx, nil, userID, candidateID)
		if err != nil {
			s.log.Warn("SuggestMatches: skipping candidate", "error", err, "candidate_id", candidateID)
			continue
		}
		if existing != nil {
			continue
		}

		score := s.scorer.Score(requester, candidate)
		if score.Overall < minScore {
			continue
		}
		name := ""
		if candidate.Profile != nil {
			name = candidate.Profile.DisplayName
		}
		suggestions = append(suggestions, MatchSuggestion{
			UserID:      candidateID,
			DisplayName: name,
			Score:       score,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score.Overall != suggestions[j].Score.Overall {
			return suggestions[i].Score.Overall > suggestions[j].Score.Overall
		}
		return suggestions[i].UserID.String() < suggestions[j].UserID.String()
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

func (s *matchingService) CalculateCompatibility(ctx context.Context, userID, otherID uuid.UUID, threshold float64) (CompatibilityScore, error) {
	if userID == otherID {
		return CompatibilityScore{}, apierr.Validation("cannot score a user against themselves")
	}
	a, err := s.loadCandidate(ctx, userID)
	if err != nil {
		return CompatibilityScore{}, err
	}
	b, err := s.loadCandidate(ctx, otherID)
	if err != nil {
		return CompatibilityScore{}, err
	}
	return s.scorer.ScoreWithThreshold(a, b, threshold)
}

func (s *matchingService) GetPreferences(ctx context.Context, userID uuid.UUID) (*types.MatchingPreferences, error) {
	prefs, err := s.preferencesRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if prefs != nil {
		return prefs, nil
	}

	prefs = types.DefaultPreferences(userID)
	if err := s.preferencesRepo.Upsert(ctx, nil, prefs); err != nil {
		return nil, apierr.Internal(err)
	}
	return prefs, nil
}

func (s *matchingService) UpdatePreferences(ctx context.Context, userID uuid.UUID, update PreferencesUpdate) (*types.MatchingPreferences, error) {
	if update.MinCompatibility != nil && (*update.MinCompatibility < 0 || *update.MinCompatibility > 1) {
		return nil, apierr.Validation("min_compatibility must be between 0 and 1")
	}
	if update.MaxPartners != nil && *update.MaxPartners < 1 {
		return nil, apierr.Validation("max_partners must be at least 1")
	}

	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.MatchingEnabled != nil {
		prefs.MatchingEnabled = *update.MatchingEnabled
	}
	if update.MinCompatibility != nil {
		prefs.MinCompatibility = *update.MinCompatibility
	}
	if update.MaxPartners != nil {
		prefs.MaxPartners = *update.MaxPartners
	}
	if update.PreferredFocusAreas != nil {
		raw, err := json.Marshal(update.PreferredFocusAreas)
		if err != nil {
			return nil, apierr.Validation("invalid preferred focus areas")
		}
		prefs.PreferredFocusAreas = raw
	}

	if err := s.preferencesRepo.Upsert(ctx, nil, prefs); err != nil {
		return nil, apierr.Internal(err)
	}
	return prefs, nil
}

// loadCandidate fetches the scoring inputs for one user, falling back to
// default preferences when none are stored. A missing profile is a not_found.
func (s *matchingService) loadCandidate(ctx context.Context, userID uuid.UUID) (Candidate, error) {
	profile, err := s.profileRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return Candidate{}, apierr.Internal(err)
	}
	if profile == nil {
		return Candidate{}, apierr.NotFound("user profile")
	}
	prefs, err := s.preferencesRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return Candidate{}, apierr.Internal(err)
	}
	if prefs == nil {
		prefs = types.DefaultPreferences(userID)
	}
	return Candidate{Profile: profile, Preferences: prefs}, nil
}
