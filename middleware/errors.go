package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorBoundary turns a panic into a logged UNHANDLED_EXCEPTION and a 500.
// Middleware installed after it does not finish, so the session is not saved.
func ErrorBoundary(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			fields := []zap.Field{
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("request_id", GetRequestID(c)),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			}
			if uid, ok := UserID(c); ok {
				fields = append(fields, zap.Uint("user_id", uid))
			}
			log.Error("UNHANDLED_EXCEPTION", fields...)

			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
			c.Abort()
		}()
		c.Next()
	}
}
