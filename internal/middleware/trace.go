package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Druk83/TrainingGround-sub001/internal/logger"
)

// TraceIDHeader carries the request correlation id. An inbound value is
// trusted and echoed back; otherwise one is generated so every log line for
// the request can be correlated.
const TraceIDHeader = "X-Trace-Id"

const traceIDKey = "traceID"

func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(traceIDKey, traceID)
		c.Writer.Header().Set(TraceIDHeader, traceID)
		c.Request = c.Request.WithContext(
			logger.ContextWithTrace(c.Request.Context(), traceID),
		)

		c.Next()
	}
}

// TraceID returns the correlation id attached to the request, if any.
func TraceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}
