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

// Health status bands for a partnership.
const (
	HealthHealthy  = "HEALTHY"
	HealthAtRisk   = "AT_RISK"
	HealthCritical = "CRITICAL"
)

// PartnershipOptions are the lifecycle tuning knobs, loaded from env in app
// wiring.
type PartnershipOptions struct {
	PendingExpiry     time.Duration // PENDING requests older than this get swept
	HealthDecayAfter  time.Duration // grace period before inactivity decays health
	HealthDecayPerDay float64       // decay applied per day past the grace period
	InactiveEndAfter  time.Duration // ACTIVE partnerships idle this long get ended
}

func DefaultPartnershipOptions() PartnershipOptions {
	return PartnershipOptions{
		PendingExpiry:     72 * time.Hour,
		HealthDecayAfter:  7 * 24 * time.Hour,
		HealthDecayPerDay: 0.05,
		InactiveEndAfter:  30 * 24 * time.Hour,
	}
}

// PartnershipHealth is the health report for one partnership.
type PartnershipHealth struct {
	PartnershipID uuid.UUID `json:"partnership_id"`
	Score         float64   `json:"score"`
	Status        string    `json:"status"`
	Interventions []string  `json:"interventions"`
}

// PartnershipStatistics summarizes a user's partnership history.
type PartnershipStatistics struct {
	Total         int64                             `json:"total"`
	ByStatus      map[types.PartnershipStatus]int64 `json:"by_status"`
	AverageHealth float64                           `json:"average_health"`
}

type PartnershipService interface {
	Propose(ctx context.Context, requesterID, recipientID uuid.UUID) (*types.BuddyPartnership, error)
	Accept(ctx context.Context, id, actorID uuid.UUID) (*types.BuddyPartnership, error)
	Decline(ctx context.Context, id, actorID uuid.UUID, reason string) (*types.BuddyPartnership, error)
	Pause(ctx context.Context, id, actorID uuid.UUID, resumeAt time.Time) (*types.BuddyPartnership, error)
	Resume(ctx context.Context, id, actorID uuid.UUID) (*types.BuddyPartnership, error)
	End(ctx context.Context, id, actorID uuid.UUID, reason string) (*types.BuddyPartnership, error)
	RecordInteraction(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id, actorID uuid.UUID) (*types.BuddyPartnership, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*types.BuddyPartnership, error)
	PendingRequests(ctx context.Context, userID uuid.UUID) ([]*types.BuddyPartnership, error)
	History(ctx context.Context, userID uuid.UUID) ([]*types.BuddyPartnership, error)
	Statistics(ctx context.Context, userID uuid.UUID) (*PartnershipStatistics, error)
	Health(ctx context.Context, id, actorID uuid.UUID) (*PartnershipHealth, error)
	ExpirePendingRequests(ctx context.Context) (int, error)
	SweepInactive(ctx context.Context) (int, error)
}

type partnershipService struct {
	db              *gorm.DB
	log             *logger.Logger
	opts            PartnershipOptions
	partnershipRepo repos.PartnershipRepo
	preferencesRepo repos.PreferencesRepo
	profileRepo     repos.UserProfileRepo
	scorer          *Scorer
	now             func() time.Time
}

func NewPartnershipService(
	db *gorm.DB,
	baseLog *logger.Logger,
	opts PartnershipOptions,
	partnershipRepo repos.PartnershipRepo,
	preferencesRepo repos.PreferencesRepo,
	profileRepo repos.UserProfileRepo,
	scorer *Scorer,
) PartnershipService {
	return &partnershipService{
		db:              db,
		log:             baseLog.With("service", "PartnershipService"),
		opts:            opts,
		partnershipRepo: partnershipRepo,
		preferencesRepo: preferencesRepo,
		profileRepo:     profileRepo,
		scorer:          scorer,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *partnershipService) Propose(ctx context.Context, requesterID, recipientID uuid.UUID) (*types.BuddyPartnership, error) {
	if requesterID == uuid.Nil || recipientID == uuid.Nil {
		return nil, apierr.Validation("missing user id")
	}
	if requesterID == recipientID {
		return nil, apierr.Validation("cannot propose a partnership with yourself")
	}

	for _, userID := range []uuid.UUID{requesterID, recipientID} {
		if err := s.checkPartnerLimit(ctx, userID); err != nil {
			return nil, err
		}
	}

	existing, err := s.partnershipRepo.GetOpenByPair(ctx, nil, requesterID, recipientID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if existing != nil {
		return nil, apierr.Conflict("duplicate_partnership",
			"an open partnership already exists for this pair: %s", existing.ID)
	}

	compat := s.captureCompatibility(ctx, requesterID, recipientID)

	row := &types.BuddyPartnership{
		User1ID:            requesterID,
		User2ID:            recipientID,
		RequestedBy:        requesterID,
		Status:             types.PartnershipPending,
		CompatibilityScore: compat,
		HealthScore:        1.0,
	}

	created, err := s.partnershipRepo.Create(ctx, nil, row)
	if err != nil {
		// Losing a concurrent mutual-propose race surfaces as the unique
		// violation; report it like the pre-check would have.
		if errors.Is(err, repos.ErrDuplicatePair) {
			winner, lookupErr := s.partnershipRepo.GetOpenByPair(ctx, nil, requesterID, recipientID)
			if lookupErr == nil && winner != nil {
				return nil, apierr.Conflict("duplicate_partnership",
					"an open partnership already exists for this pair: %s", winner.ID)
			}
			return nil, apierr.Conflict("duplicate_partnership",
				"an open partnership already exists for this pair")
		}
		s.log.Error("Propose: create failed", "error", err)
		return nil, apierr.Internal(err)
	}
	s.log.Info("partnership proposed", "partnership_id", created.ID,
		"requested_by", requesterID, "recipient", recipientID)
	return created, nil
}

func (s *partnershipService) Accept(ctx context.Context, id, actorID uuid.UUID) (*types.BuddyPartnership, error) {
	p, err := s.loadForParty(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if p.RequestedBy == actorID {
		return nil, apierr.Forbidden("only the invited party may accept")
	}
	if err := s.guardTransition(p, types.PartnershipActive); err != nil {
		return nil, err
	}

	now := s.now()
	p.Status = types.PartnershipActive
	p.StartedAt = &now
	p.LastInteractionAt = &now
	if err := s.writeWithVersion(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("partnership accepted", "partnership_id", p.ID, "actor", actorID)
	return p, nil
}

func (s *partnershipService) Decline(ctx context.Context, id, actorID uuid.UUID, reason string) (*types.BuddyPartnership, error) {
	p, err := s.loadForParty(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if p.Status != types.PartnershipPending {
		return nil, apierr.Conflict("invalid_transition",
			"only pending requests can be declined (status %s)", p.Status)
	}
	if reason == "" {
		reason = "request declined"
	}
	return s.end(ctx, p, reason)
}

func (s *partnershipService) Pause(ctx context.Context, id, actorID uuid.UUID, resumeAt time.Time) (*types.BuddyPartnership, error) {
	p, err := s.loadForParty(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if resumeAt.IsZero() {
		return nil, apierr.Validation("resume date is required to pause")
	}
	if !resumeAt.After(s.now()) {
		return nil, apierr.Validation("resume date must be in the future")
	}
	if err := s.guardTransition(p, types.PartnershipPaused); err != nil {
		return nil, err
	}

	p.Status = types.PartnershipPaused
	p.ResumeAt = &resumeAt
	if err := s.writeWithVersion(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("partnership paused", "partnership_id", p.ID, "resume_at", resumeAt)
	return p, nil
}

func (s *partnershipService) Resume(ctx context.Context, id, actorID uuid.UUID) (*types.BuddyPartnership, error) {
	p, err := s.loadForParty(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if p.Status != types.PartnershipPaused {
		return nil, apierr.Conflict("invalid_transition",
			"only paused partnerships can resume (status %s)", p.Status)
	}

	now := s.now()
	p.Status = types.PartnershipActive
	p.ResumeAt = nil
	p.LastInteractionAt = &now
	if err := s.writeWithVersion(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("partnership resumed", "partnership_id", p.ID)
	return p, nil
}

func (s *partnershipService) End(ctx context.Context, id, actorID uuid.UUID, reason string) (*types.BuddyPartnership, error) {
	p, err := s.loadForParty(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "ended by user"
	}
	return s.end(ctx, p, reason)
}

// RecordInteraction bumps last_interaction_at and recomputes health. Retries
// once on a version conflict since interaction bumps are commutative.
func (s *partnershipService) RecordInteraction(ctx context.Context, id uuid.UUID) error {
	for attempt := 0; attempt < 2; attempt++ {
		p, err := s.partnershipRepo.GetByID(ctx, nil, id)
		if err != nil {
			return apierr.Internal(err)
		}
		if p == nil {
			return apierr.NotFound("partnership")
		}
		now := s.now()
		p.LastInteractionAt = &now
		p.HealthScore = s.healthAt(p, now)

		err = s.partnershipRepo.UpdateWithVersion(ctx, nil, p, p.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repos.ErrVersionConflict) {
			return apierr.Internal(err)
		}
	}
	return apierr.Conflict("version_conflict", "partnership was modified concurrently")
}

func (s *partnershipService) GetByID(ctx context.Context, id, actorID uuid.UUID) (*types.BuddyPartnership, error) {
	return s.loadForParty(ctx, id, actorID)
}

func (s *partnershipService) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*types.BuddyPartnership, error) {
	rows, err := s.partnershipRepo.FindByUserAndStatus(ctx, nil, userID, types.PartnershipActive)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return rows, nil
}

func (s *partnershipService) PendingRequests(ctx context.Context, userID uuid.UUID) ([]*types.BuddyPartnership, error) {
	rows, err := s.partnershipRepo.FindByUserAndStatus(ctx, nil, userID, types.PartnershipPending)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return rows, nil
}

func (s *partnershipService) History(ctx context.Context, userID uuid.UUID) ([]*types.BuddyPartnership, error) {
	rows, err := s.partnershipRepo.FindAllByUser(ctx, nil, userID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return rows, nil
}

func (s *partnershipService) Statistics(ctx context.Context, userID uuid.UUID) (*PartnershipStatistics, error) {
	rows, err := s.partnershipRepo.FindAllByUser(ctx, nil, userID)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	stats := &PartnershipStatistics{
		ByStatus: map[types.PartnershipStatus]int64{},
	}
	var healthSum float64
	var openCount int
	for _, p := range rows {
		stats.Total++
		stats.ByStatus[p.Status]++
		if p.Open() {
			healthSum += p.HealthScore
			openCount++
		}
	}
	if openCount > 0 {
		stats.AverageHealth = healthSum / float64(openCount)
	}
	return stats, nil
}

func (s *partnershipService) Health(ctx context.Context, id, actorID uuid.UUID) (*PartnershipHealth, error) {
	p, err := s.loadForParty(ctx, id, actorID)
	if err != nil {
		return nil, err
	}

	score := s.healthAt(p, s.now())
	return &PartnershipHealth{
		PartnershipID: p.ID,
		Score:         score,
		Status:        healthBand(score),
		Interventions: s.healthInterventions(p, score),
	}, nil
}

// ExpirePendingRequests ends PENDING requests older than the pending expiry.
// Idempotent; row failures are logged and skipped.
func (s *partnershipService) ExpirePendingRequests(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.opts.PendingExpiry)
	rows, err := s.partnershipRepo.FindExpiredPending(ctx, nil, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, p := range rows {
		if _, err := s.end(ctx, p, "request expired"); err != nil {
			s.log.Warn("ExpirePendingRequests: skipping row", "error", err, "partnership_id", p.ID)
			continue
		}
		expired++
	}
	if expired > 0 {
		s.log.Info("expired pending partnership requests", "count", expired)
	}
	return expired, nil
}

// SweepInactive decays health on idle ACTIVE partnerships and ends those idle
// past the inactivity horizon.
func (s *partnershipService) SweepInactive(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.Add(-s.opts.HealthDecayAfter)
	rows, err := s.partnershipRepo.FindInactiveSince(ctx, nil, cutoff)
	if err != nil {
		return 0, err
	}

	touched := 0
	endCutoff := now.Add(-s.opts.InactiveEndAfter)
	for _, p := range rows {
		if p.LastInteractionAt != nil && p.LastInteractionAt.Before(endCutoff) {
			if _, err := s.end(ctx, p, "inactivity"); err != nil {
				s.log.Warn("SweepInactive: skipping row", "error", err, "partnership_id", p.ID)
				continue
			}
			touched++
			continue
		}
		decayed := s.healthAt(p, now)
		if decayed == p.HealthScore {
			continue
		}
		p.HealthScore = decayed
		if err := s.writeWithVersion(ctx, p); err != nil {
			s.log.Warn("SweepInactive: skipping row", "error", err, "partnership_id", p.ID)
			continue
		}
		touched++
	}
	return touched, nil
}

func (s *partnershipService) checkPartnerLimit(ctx context.Context, userID uuid.UUID) error {
	prefs, err := s.preferencesRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return apierr.Internal(err)
	}
	if prefs == nil {
		prefs = types.DefaultPreferences(userID)
	}
	count, err := s.partnershipRepo.CountOpenByUser(ctx, nil, userID)
	if err != nil {
		return apierr.Internal(err)
	}
	if count >= int64(prefs.MaxPartners) {
		return apierr.Conflict("partner_limit_reached",
			"user %s is at their partnership limit (%d)", userID, prefs.MaxPartners)
	}
	return nil
}

// captureCompatibility scores the pair at proposal time. Missing profiles are
// tolerated; the score is informational on the row.
func (s *partnershipService) captureCompatibility(ctx context.Context, a, b uuid.UUID) float64 {
	if s.scorer == nil {
		return 0
	}
	profileA, errA := s.profileRepo.GetByID(ctx, nil, a)
	profileB, errB := s.profileRepo.GetByID(ctx, nil, b)
	if errA != nil || errB != nil || profileA == nil || profileB == nil {
		return 0
	}
	return s.scorer.Score(Candidate{Profile: profileA}, Candidate{Profile: profileB}).Overall
}

func (s *partnershipService) loadForParty(ctx context.Context, id, actorID uuid.UUID) (*types.BuddyPartnership, error) {
	p, err := s.partnershipRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if p == nil {
		return nil, apierr.NotFound("partnership")
	}
	if !p.InvolvesUser(actorID) {
		return nil, apierr.Forbidden("not a party to this partnership")
	}
	return p, nil
}

func (s *partnershipService) guardTransition(p *types.BuddyPartnership, to types.PartnershipStatus) error {
	if !types.CanTransition(p.Status, to) {
		return apierr.Conflict("invalid_transition",
			"cannot transition from %s to %s", p.Status, to)
	}
	return nil
}

func (s *partnershipService) end(ctx context.Context, p *types.BuddyPartnership, reason string) (*types.BuddyPartnership, error) {
	if err := s.guardTransition(p, types.PartnershipEnded); err != nil {
		return nil, err
	}
	now := s.now()
	p.Status = types.PartnershipEnded
	p.EndedAt = &now
	p.EndReason = reason
	p.ResumeAt = nil
	if err := s.writeWithVersion(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("partnership ended", "partnership_id", p.ID, "reason", reason)
	return p, nil
}

func (s *partnershipService) writeWithVersion(ctx context.Context, p *types.BuddyPartnership) error {
	expected := p.Version
	if err := s.partnershipRepo.UpdateWithVersion(ctx, nil, p, expected); err != nil {
		if errors.Is(err, repos.ErrVersionConflict) {
			return apierr.Conflict("version_conflict", "partnership was modified concurrently")
		}
		return apierr.Internal(err)
	}
	return nil
}

// healthAt applies inactivity decay to the stored health score. Decay starts
// after the grace period and floors at zero. PENDING and ENDED rows keep
// their stored score.
func (s *partnershipService) healthAt(p *types.BuddyPartnership, now time.Time) float64 {
	if p.Status != types.PartnershipActive || p.LastInteractionAt == nil {
		return p.HealthScore
	}
	idle := now.Sub(*p.LastInteractionAt)
	if idle <= s.opts.HealthDecayAfter {
		return p.HealthScore
	}
	daysPast := (idle - s.opts.HealthDecayAfter).Hours() / 24
	decayed := clamp01(1.0 - daysPast*s.opts.HealthDecayPerDay)
	// health never rises without an interaction, so a stored score below the
	// decay curve stands
	if decayed > p.HealthScore {
		return p.HealthScore
	}
	return decayed
}

func healthBand(score float64) string {
	switch {
	case score >= 0.7:
		return HealthHealthy
	case score >= 0.4:
		return HealthAtRisk
	default:
		return HealthCritical
	}
}

func (s *partnershipService) healthInterventions(p *types.BuddyPartnership, score float64) []string {
	interventions := []string{}
	if score >= 0.7 {
		return interventions
	}

	if p.LastInteractionAt != nil {
		idleDays := int(s.now().Sub(*p.LastInteractionAt).Hours() / 24)
		if idleDays >= 3 {
			interventions = append(interventions,
				"Check in with your buddy; it has been a few days since your last interaction")
		}
	}
	if score < 0.4 {
		interventions = append(interventions,
			"Schedule a short session together this week to rebuild momentum")
		interventions = append(interventions,
			"Consider revisiting your shared goals or pausing the partnership")
	} else {
		interventions = append(interventions,
			"Send an encouragement check-in to keep the partnership active")
	}
	return interventions
}
