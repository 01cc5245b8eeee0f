package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// IdempotencyKeyHeader is the optional client-supplied dedup key for
	// hold placement. When absent a fresh key is minted per request.
	IdempotencyKeyHeader = "X-Idempotency-Key"

	// ContextIdempotencyKey is the gin context key the resolved value is
	// stored under.
	ContextIdempotencyKey = "idempotency_key"
)

// IdempotencyKey resolves the idempotency key for the request: the
// X-Idempotency-Key header when the client sends one, otherwise a freshly
// minted UUID. Handlers read it from the gin context.
func IdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			key = uuid.NewString()
		}
		c.Set(ContextIdempotencyKey, key)
		c.Next()
	}
}

// GetIdempotencyKey returns the resolved idempotency key for the request.
func GetIdempotencyKey(c *gin.Context) string {
	if key, ok := c.Get(ContextIdempotencyKey); ok {
		if s, ok := key.(string); ok {
			return s
		}
	}
	return ""
}

// RequestTimeout bounds every handler with a deadline so a stuck
// transaction cannot pin a connection past the configured window.
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
