package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/platform/apierr"
	"github.com/focushive/buddy-service/internal/services"
)

type PartnershipHandler struct {
	log *logger.Logger
	svc services.PartnershipService
}

func NewPartnershipHandler(log *logger.Logger, svc services.PartnershipService) *PartnershipHandler {
	return &PartnershipHandler{
		log: log.With("handler", "PartnershipHandler"),
		svc: svc,
	}
}

type proposeRequest struct {
	RecipientID uuid.UUID `json:"recipientId" binding:"required"`
}

// POST /api/v1/partnerships
func (h *PartnershipHandler) Propose(c *gin.Context) {
	var req proposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondServiceError(c, apierr.Validation("invalid request body: %s", err))
		return
	}
	p, err := h.svc.Propose(c.Request.Context(), actorID(c), req.RecipientID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, p)
}

// GET /api/v1/partnerships
func (h *PartnershipHandler) ListActive(c *gin.Context) {
	rows, err := h.svc.ListActiveByUser(c.Request.Context(), actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"partnerships": rows})
}

// GET /api/v1/partnerships/requests
func (h *PartnershipHandler) PendingRequests(c *gin.Context) {
	rows, err := h.svc.PendingRequests(c.Request.Context(), actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"requests": rows})
}

// GET /api/v1/partnerships/statistics
func (h *PartnershipHandler) Statistics(c *gin.Context) {
	stats, err := h.svc.Statistics(c.Request.Context(), actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, stats)
}

// GET /api/v1/partnerships/:id
func (h *PartnershipHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetByID(c.Request.Context(), id, actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, p)
}

// POST /api/v1/partnerships/:id/accept
func (h *PartnershipHandler) Accept(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Accept(c.Request.Context(), id, actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, p)
}

type reasonRequest struct {
	Reason string `json:"reason,omitempty"`
}

// POST /api/v1/partnerships/:id/decline
func (h *PartnershipHandler) Decline(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)

	p, err := h.svc.Decline(c.Request.Context(), id, actorID(c), req.Reason)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, p)
}

type pauseRequest struct {
	ResumeAt time.Time `json:"resumeAt" binding:"required"`
}

// POST /api/v1/partnerships/:id/pause
func (h *PartnershipHandler) Pause(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req pauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondServiceError(c, apierr.Validation("resumeAt is required: %s", err))
		return
	}

	p, err := h.svc.Pause(c.Request.Context(), id, actorID(c), req.ResumeAt)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, p)
}

// POST /api/v1/partnerships/:id/resume
func (h *PartnershipHandler) Resume(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Resume(c.Request.Context(), id, actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, p)
}

// POST /api/v1/partnerships/:id/end
func (h *PartnershipHandler) End(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)

	p, err := h.svc.End(c.Request.Context(), id, actorID(c), req.Reason)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, p)
}

// GET /api/v1/partnerships/:id/health
func (h *PartnershipHandler) Health(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	health, err := h.svc.Health(c.Request.Context(), id, actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, health)
}

// pathID parses a uuid path param, writing the validation error itself.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondServiceError(c, apierr.Validation("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}
