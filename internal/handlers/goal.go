package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/platform/apierr"
	"github.com/focushive/buddy-service/internal/services"
)

type GoalHandler struct {
	log *logger.Logger
	svc services.GoalService
}

func NewGoalHandler(log *logger.Logger, svc services.GoalService) *GoalHandler {
	return &GoalHandler{
		log: log.With("handler", "GoalHandler"),
		svc: svc,
	}
}

// POST /api/v1/goals
func (h *GoalHandler) Create(c *gin.Context) {
	var req services.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondServiceError(c, apierr.Validation("invalid request body: %s", err))
		return
	}
	goal, err := h.svc.CreateGoal(c.Request.Context(), actorID(c), req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, goal)
}

// GET /api/v1/goals
func (h *GoalHandler) List(c *gin.Context) {
	goals, err := h.svc.ListGoals(c.Request.Context(), actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"goals": goals})
}

// GET /api/v1/goals/templates?category=
func (h *GoalHandler) Templates(c *gin.Context) {
	templates, err := h.svc.ListTemplates(c.Query("category"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"templates": templates})
}

// GET /api/v1/goals/suggestions?max=
func (h *GoalHandler) Suggestions(c *gin.Context) {
	maxResults := 3
	if raw := c.Query("max"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			RespondServiceError(c, apierr.Validation("max must be an integer"))
			return
		}
		maxResults = parsed
	}

	templates, err := h.svc.SuggestGoals(c.Request.Context(), actorID(c), maxResults)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"suggestions": templates})
}

// GET /api/v1/goals/:id
func (h *GoalHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	goal, err := h.svc.GetGoal(c.Request.Context(), id, actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, goal)
}

// PUT /api/v1/goals/:id
func (h *GoalHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondServiceError(c, apierr.Validation("invalid request body: %s", err))
		return
	}

	goal, err := h.svc.UpdateGoal(c.Request.Context(), id, actorID(c), req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, goal)
}

// DELETE /api/v1/goals/:id
func (h *GoalHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	goal, err := h.svc.CancelGoal(c.Request.Context(), id, actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, goal)
}

type progressRequest struct {
	Percentage int    `json:"percentage"`
	Note       string `json:"note,omitempty"`
}

// POST /api/v1/goals/:id/progress
func (h *GoalHandler) UpdateProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondServiceError(c, apierr.Validation("invalid request body: %s", err))
		return
	}

	goal, err := h.svc.UpdateProgress(c.Request.Context(), id, actorID(c), req.Percentage)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, goal)
}

// GET /api/v1/goals/:id/progress
func (h *GoalHandler) ListProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.svc.ListProgress(c.Request.Context(), id, actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"progress": entries})
}

// POST /api/v1/goals/:id/progress/daily
func (h *GoalHandler) TrackDaily(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondServiceError(c, apierr.Validation("invalid request body: %s", err))
		return
	}

	goal, err := h.svc.TrackDailyProgress(c.Request.Context(), id, actorID(c), req.Percentage, req.Note)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, goal)
}

// GET /api/v1/goals/:id/analytics
func (h *GoalHandler) Analytics(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	analytics, err := h.svc.Analytics(c.Request.Context(), id, actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, analytics)
}

// GET /api/v1/goals/:id/stagnation?days=
func (h *GoalHandler) Stagnation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			RespondServiceError(c, apierr.Validation("days must be an integer"))
			return
		}
		days = parsed
	}

	stagnant, err := h.svc.DetectStagnation(c.Request.Context(), id, actorID(c), days)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"stagnant": stagnant, "threshold_days": days})
}

// GET /api/v1/goals/:id/interventions
func (h *GoalHandler) Interventions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	interventions, err := h.svc.SuggestInterventions(c.Request.Context(), id, actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"interventions": interventions})
}

// POST /api/v1/goals/:id/milestones
func (h *GoalHandler) AddMilestone(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.MilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondServiceError(c, apierr.Validation("invalid request body: %s", err))
		return
	}

	m, err := h.svc.AddMilestone(c.Request.Context(), id, actorID(c), req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, m)
}

// GET /api/v1/goals/:id/milestones
func (h *GoalHandler) ListMilestones(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	milestones, err := h.svc.ListMilestones(c.Request.Context(), id, actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"milestones": milestones})
}

// PUT /api/v1/goals/:id/milestones/:mid
func (h *GoalHandler) UpdateMilestone(c *gin.Context) {
	goalID, ok := pathID(c, "id")
	if !ok {
		return
	}
	milestoneID, ok := pathID(c, "mid")
	if !ok {
		return
	}
	var req services.MilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondServiceError(c, apierr.Validation("invalid request body: %s", err))
		return
	}

	m, err := h.svc.UpdateMilestone(c.Request.Context(), goalID, milestoneID, actorID(c), req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, m)
}

// POST /api/v1/goals/:id/milestones/:mid/complete
func (h *GoalHandler) CompleteMilestone(c *gin.Context) {
	goalID, ok := pathID(c, "id")
	if !ok {
		return
	}
	milestoneID, ok := pathID(c, "mid")
	if !ok {
		return
	}

	m, err := h.svc.CompleteMilestone(c.Request.Context(), goalID, milestoneID, actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, m)
}

type reorderRequest struct {
	MilestoneIDs []uuid.UUID `json:"milestoneIds" binding:"required"`
}

// POST /api/v1/goals/:id/milestones/reorder
func (h *GoalHandler) ReorderMilestones(c *gin.Context) {
	goalID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondServiceError(c, apierr.Validation("invalid request body: %s", err))
		return
	}

	milestones, err := h.svc.ReorderMilestones(c.Request.Context(), goalID, actorID(c), req.MilestoneIDs)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"milestones": milestones})
}
