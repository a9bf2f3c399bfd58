package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader  = "X-Request-Id"
	ContextRequestID = "request_id"

	maxRequestIDLen = 64
)

// RequestID tags every request with an id, honoring a caller-supplied one
// when it is sane and minting a fresh uuid otherwise.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.NewString()
		}

		c.Set(ContextRequestID, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)

		c.Next()
	}
}

// RequestIDFrom returns the id RequestID placed on the context.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(ContextRequestID)
}
