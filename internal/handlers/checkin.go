package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/platform/apierr"
	"github.com/focushive/buddy-service/internal/services"
)

type CheckinHandler struct {
	log *logger.Logger
	svc services.CheckinService
}

func NewCheckinHandler(log *logger.Logger, svc services.CheckinService) *CheckinHandler {
	return &CheckinHandler{
		log: log.With("handler", "CheckinHandler"),
		svc: svc,
	}
}

// POST /api/v1/partnerships/:id/checkins
func (h *CheckinHandler) Create(c *gin.Context) {
	partnershipID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondServiceError(c, apierr.Validation("invalid request body: %s", err))
		return
	}

	row, err := h.svc.CreateCheckin(c.Request.Context(), actorID(c), partnershipID, req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, row)
}

// GET /api/v1/partnerships/:id/checkins?limit=
func (h *CheckinHandler) List(c *gin.Context) {
	partnershipID, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			RespondServiceError(c, apierr.Validation("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	rows, err := h.svc.ListCheckins(c.Request.Context(), actorID(c), partnershipID, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"checkins": rows})
}

// GET /api/v1/accountability?partnershipId=
func (h *CheckinHandler) GetScore(c *gin.Context) {
	var partnershipID *uuid.UUID
	if raw := c.Query("partnershipId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondServiceError(c, apierr.Validation("invalid partnershipId"))
			return
		}
		partnershipID = &id
	}

	report, err := h.svc.GetScore(c.Request.Context(), actorID(c), partnershipID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, report)
}

// GET /api/v1/partnerships/:id/accountability/compare
func (h *CheckinHandler) Compare(c *gin.Context) {
	partnershipID, ok := pathID(c, "id")
	if !ok {
		return
	}
	comparison, err := h.svc.CompareWithPartner(c.Request.Context(), actorID(c), partnershipID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, comparison)
}

// GET /api/v1/accountability/suggestions?partnershipId=
func (h *CheckinHandler) Suggestions(c *gin.Context) {
	var partnershipID *uuid.UUID
	if raw := c.Query("partnershipId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondServiceError(c, apierr.Validation("invalid partnershipId"))
			return
		}
		partnershipID = &id
	}

	suggestions, err := h.svc.SuggestScoreImprovement(c.Request.Context(), actorID(c), partnershipID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"suggestions": suggestions})
}
