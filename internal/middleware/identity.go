package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/focushive/buddy-service/internal/handlers"
	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/requestdata"
)

const (
	userIDHeader   = "X-User-ID"
	internalHeader = "X-Internal-Service"
)

// RequireIdentity extracts the trusted user id header and stashes it in the
// request context. The gateway upstream authenticates; this service only
// parses what it is handed.
func RequireIdentity(log *logger.Logger) gin.HandlerFunc {
	mwLog := log.With("middleware", "RequireIdentity")
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(userIDHeader))
		if raw == "" {
			handlers.RespondError(c, http.StatusBadRequest, "validation_error",
				fmt.Errorf("missing %s header", userIDHeader))
			c.Abort()
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			mwLog.Warn("malformed user id header", "value", raw)
			handlers.RespondError(c, http.StatusBadRequest, "validation_error",
				fmt.Errorf("malformed %s header", userIDHeader))
			c.Abort()
			return
		}

		rd := &requestdata.RequestData{
			UserID:   userID,
			Internal: strings.EqualFold(c.GetHeader(internalHeader), "true"),
		}
		c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

// RequireInternal gates privileged routes on the internal-service header.
func RequireInternal() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if rd == nil || !rd.Internal {
			handlers.RespondError(c, http.StatusForbidden, "forbidden",
				fmt.Errorf("internal service access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
