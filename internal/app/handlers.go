package app

import (
	"github.com/focushive/buddy-service/internal/handlers"
	"github.com/focushive/buddy-service/internal/logger"
)

type Handlers struct {
	Matching    *handlers.MatchingHandler
	Partnership *handlers.PartnershipHandler
	Checkin     *handlers.CheckinHandler
	Goal        *handlers.GoalHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Matching:    handlers.NewMatchingHandler(log, services.Matching),
		Partnership: handlers.NewPartnershipHandler(log, services.Partnership),
		Checkin:     handlers.NewCheckinHandler(log, services.Checkin),
		Goal:        handlers.NewGoalHandler(log, services.Goal),
	}
}
