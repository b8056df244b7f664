package app

import (
	"github.com/gin-gonic/gin"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/server"
)

func wireRouter(log *logger.Logger, handlers Handlers, tracing bool) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		Log:                log,
		MatchingHandler:    handlers.Matching,
		PartnershipHandler: handlers.Partnership,
		CheckinHandler:     handlers.Checkin,
		GoalHandler:        handlers.Goal,
		TracingEnabled:     tracing,
	})
}
