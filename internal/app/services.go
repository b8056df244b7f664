package app

import (
	"gorm.io/gorm"

	"github.com/focushive/buddy-service/internal/clients/redis"
	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/services"
)

type Services struct {
	Scorer      *services.Scorer
	Matching    services.MatchingService
	Partnership services.PartnershipService
	Checkin     services.CheckinService
	Goal        services.GoalService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, queue redis.MatchQueue) Services {
	log.Info("Wiring services...")

	scorer := services.NewScorer(cfg.Weights)
	partnership := services.NewPartnershipService(db, log, cfg.Partnership,
		r.Partnership, r.Preferences, r.UserProfile, scorer)
	checkin := services.NewCheckinService(db, log, cfg.Accountability,
		r.CheckIn, r.Accountability, r.Partnership, partnership)

	return Services{
		Scorer:      scorer,
		Matching:    services.NewMatchingService(db, log, scorer, queue, r.UserProfile, r.Preferences, r.Partnership),
		Partnership: partnership,
		Checkin:     checkin,
		Goal: services.NewGoalService(db, log,
			r.Goal, r.Milestone, r.Progress, r.Partnership, r.Preferences, checkin),
	}
}
