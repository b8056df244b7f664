package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/focushive/buddy-service/internal/handlers"
	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/middleware"
	"github.com/focushive/buddy-service/internal/utils"
)

type RouterConfig struct {
	Log                *logger.Logger
	MatchingHandler    *handlers.MatchingHandler
	PartnershipHandler *handlers.PartnershipHandler
	CheckinHandler     *handlers.CheckinHandler
	GoalHandler        *handlers.GoalHandler
	TracingEnabled     bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", cfg.Log)
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(origins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-User-ID", "X-Internal-Service", "X-Requested-With"},
		AllowCredentials: true,
	}))
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("buddy-service"))
	}

	router.GET("/health", handlers.HealthCheck)

	api := router.Group("/api/v1")
	api.Use(middleware.RequireIdentity(cfg.Log))

	// Matching
	matching := api.Group("/matching")
	{
		matching.POST("/queue", cfg.MatchingHandler.JoinQueue)
		matching.DELETE("/queue", cfg.MatchingHandler.LeaveQueue)
		matching.GET("/queue/status", cfg.MatchingHandler.QueueStatus)
		matching.GET("/queue/size", middleware.RequireInternal(), cfg.MatchingHandler.QueueSize)
		matching.GET("/suggestions", cfg.MatchingHandler.Suggestions)
		matching.POST("/calculate", cfg.MatchingHandler.Calculate)
		matching.GET("/preferences", cfg.MatchingHandler.GetPreferences)
		matching.PUT("/preferences", cfg.MatchingHandler.UpdatePreferences)
	}

	// Partnerships
	partnerships := api.Group("/partnerships")
	{
		partnerships.POST("", cfg.PartnershipHandler.Propose)
		partnerships.GET("", cfg.PartnershipHandler.ListActive)
		partnerships.GET("/requests", cfg.PartnershipHandler.PendingRequests)
		partnerships.GET("/statistics", cfg.PartnershipHandler.Statistics)
		partnerships.GET("/:id", cfg.PartnershipHandler.Get)
		partnerships.POST("/:id/accept", cfg.PartnershipHandler.Accept)
		partnerships.POST("/:id/decline", cfg.PartnershipHandler.Decline)
		partnerships.POST("/:id/pause", cfg.PartnershipHandler.Pause)
		partnerships.POST("/:id/resume", cfg.PartnershipHandler.Resume)
		partnerships.POST("/:id/end", cfg.PartnershipHandler.End)
		partnerships.GET("/:id/health", cfg.PartnershipHandler.Health)
		partnerships.POST("/:id/checkins", cfg.CheckinHandler.Create)
		partnerships.GET("/:id/checkins", cfg.CheckinHandler.List)
		partnerships.GET("/:id/accountability/compare", cfg.CheckinHandler.Compare)
	}

	// Accountability
	api.GET("/accountability", cfg.CheckinHandler.GetScore)
	api.GET("/accountability/suggestions", cfg.CheckinHandler.Suggestions)

	// Goals
	goals := api.Group("/goals")
	{
		goals.POST("", cfg.GoalHandler.Create)
		goals.GET("", cfg.GoalHandler.List)
		goals.GET("/templates", cfg.GoalHandler.Templates)
		goals.GET("/suggestions", cfg.GoalHandler.Suggestions)
		goals.GET("/:id", cfg.GoalHandler.Get)
		goals.PUT("/:id", cfg.GoalHandler.Update)
		goals.DELETE("/:id", cfg.GoalHandler.Cancel)
		goals.POST("/:id/progress", cfg.GoalHandler.UpdateProgress)
		goals.GET("/:id/progress", cfg.GoalHandler.ListProgress)
		goals.POST("/:id/progress/daily", cfg.GoalHandler.TrackDaily)
		goals.GET("/:id/analytics", cfg.GoalHandler.Analytics)
		goals.GET("/:id/stagnation", cfg.GoalHandler.Stagnation)
		goals.GET("/:id/interventions", cfg.GoalHandler.Interventions)
		goals.POST("/:id/milestones", cfg.GoalHandler.AddMilestone)
		goals.GET("/:id/milestones", cfg.GoalHandler.ListMilestones)
		goals.POST("/:id/milestones/reorder", cfg.GoalHandler.ReorderMilestones)
		goals.PUT("/:id/milestones/:mid", cfg.GoalHandler.UpdateMilestone)
		goals.POST("/:id/milestones/:mid/complete", cfg.GoalHandler.CompleteMilestone)
	}

	return router
}
