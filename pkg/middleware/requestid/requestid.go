package requestid

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	headerKey  = "X-Request-ID"
	contextKey = "request_id"
)

type ctxKey struct{}

// Middleware assigns a unique request ID to each incoming HTTP request and carries it on the
// request context so services can tag background work with it.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(headerKey)
		if reqID == "" {
			reqID = generateID()
		}

		c.Set(contextKey, reqID)
		c.Request = c.Request.WithContext(WithValue(c.Request.Context(), reqID))
		c.Writer.Header().Set(headerKey, reqID)

		c.Next()
	}
}

// Value returns the request ID stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithValue stores id on ctx.
func WithValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request ID carried by ctx, if any.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func generateID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}

	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
