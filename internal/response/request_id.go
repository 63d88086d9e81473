package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKeyRequestID is the Gin context key for the request ID.
const ContextKeyRequestID = "request_id"

// requestIDHeader is echoed on every response so clients and proxies can
// correlate log lines across services.
const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware attaches a request ID to every request, honoring a
// caller-supplied X-Request-ID when present and sane.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
