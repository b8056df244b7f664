package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/platform/apierr"
	"github.com/focushive/buddy-service/internal/requestdata"
	"github.com/focushive/buddy-service/internal/services"
)

type MatchingHandler struct {
	log *logger.Logger
	svc services.MatchingService
}

func NewMatchingHandler(log *logger.Logger, svc services.MatchingService) *MatchingHandler {
	return &MatchingHandler{
		log: log.With("handler", "MatchingHandler"),
		svc: svc,
	}
}

// POST /api/v1/matching/queue
func (h *MatchingHandler) JoinQueue(c *gin.Context) {
	userID := actorID(c)
	if err := h.svc.JoinQueue(c.Request.Context(), userID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"queued": true})
}

// DELETE /api/v1/matching/queue
func (h *MatchingHandler) LeaveQueue(c *gin.Context) {
	userID := actorID(c)
	if err := h.svc.LeaveQueue(c.Request.Context(), userID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"queued": false})
}

// GET /api/v1/matching/queue/status
func (h *MatchingHandler) QueueStatus(c *gin.Context) {
	queued, err := h.svc.QueueStatus(c.Request.Context(), actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"queued": queued})
}

// GET /api/v1/matching/queue/size (privileged)
func (h *MatchingHandler) QueueSize(c *gin.Context) {
	size, err := h.svc.QueueSize(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"size": size})
}

// GET /api/v1/matching/suggestions?limit=&threshold=
func (h *MatchingHandler) Suggestions(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			RespondServiceError(c, apierr.Validation("limit must be an integer"))
			return
		}
		limit = parsed
	}
	var threshold *float64
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			RespondServiceError(c, apierr.Validation("threshold must be a number"))
			return
		}
		threshold = &parsed
	}

	suggestions, err := h.svc.SuggestMatches(c.Request.Context(), actorID(c), limit, threshold)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"suggestions": suggestions})
}

type calculateRequest struct {
	UserID    uuid.UUID `json:"userId" binding:"required"`
	Threshold *float64  `json:"threshold,omitempty"`
}

// POST /api/v1/matching/calculate
func (h *MatchingHandler) Calculate(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondServiceError(c, apierr.Validation("invalid request body: %s", err))
		return
	}
	threshold := 0.0
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	score, err := h.svc.CalculateCompatibility(c.Request.Context(), actorID(c), req.UserID, threshold)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, score)
}

// GET /api/v1/matching/preferences
func (h *MatchingHandler) GetPreferences(c *gin.Context) {
	prefs, err := h.svc.GetPreferences(c.Request.Context(), actorID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, prefs)
}

type preferencesRequest struct {
	MatchingEnabled     *bool    `json:"matching_enabled,omitempty"`
	MinCompatibility    *float64 `json:"min_compatibility,omitempty"`
	PreferredFocusAreas []string `json:"preferred_focus_areas,omitempty"`
	MaxPartners         *int     `json:"max_partners,omitempty"`
}

// PUT /api/v1/matching/preferences
func (h *MatchingHandler) UpdatePreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondServiceError(c, apierr.Validation("invalid request body: %s", err))
		return
	}

	prefs, err := h.svc.UpdatePreferences(c.Request.Context(), actorID(c), services.PreferencesUpdate{
		MatchingEnabled:     req.MatchingEnabled,
		MinCompatibility:    req.MinCompatibility,
		PreferredFocusAreas: req.PreferredFocusAreas,
		MaxPartners:         req.MaxPartners,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, prefs)
}

// actorID reads the identity set by the middleware. Routes using it are
// always behind RequireIdentity, so a nil carrier never happens in practice.
func actorID(c *gin.Context) uuid.UUID {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		return uuid.Nil
	}
	return rd.UserID
}
