package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Druk83/TrainingGround-sub001/internal/logger"
	"github.com/Druk83/TrainingGround-sub001/internal/quota"
)

// UserIDHeader is set by the upstream auth layer once it has verified the
// caller. Authentication itself happens outside this service.
const UserIDHeader = "X-User-ID"

// Quota gates every request behind the admission check: identity scope first
// when an identity is known, then origin scope. Store failures reject the
// request (fail-closed) rather than waving it through unprotected.
func Quota(enforcer *quota.Enforcer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)

		err := enforcer.CheckRequest(c.Request.Context(), userID, c.ClientIP())
		if err == nil {
			c.Next()
			return
		}

		var qe *quota.Error
		if errors.As(err, &qe) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
				"scope": string(qe.Scope),
			})
			return
		}

		logger.Error("admission check failed", map[string]any{
			"trace_id": TraceID(c),
			"error":    err.Error(),
		})
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error": "service unavailable",
		})
	}
}
