package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xxxsen/common/trace"
)

// RequestID echoes the request's correlation identifier back to the caller.
// The webapi engine's trace middleware already puts the id (client-supplied
// X-Request-Id or a fresh uuid) on the request context, where the logger
// picks it up; this echoes that same id so a caller can match a response to
// the server-side log lines. When no trace id is present yet, one is
// generated and pushed onto the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID, ok := trace.GetTraceId(c.Request.Context())
		if !ok || reqID == "" {
			reqID = c.GetHeader("X-Request-Id")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Request = c.Request.WithContext(trace.WithTraceId(c.Request.Context(), reqID))
		}
		c.Writer.Header().Set("X-Request-Id", reqID)
		c.Set("request_id", reqID)
		c.Next()
	}
}
