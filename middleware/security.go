package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var suspiciousPaths = []string{
	"/.env",
	"/wp-admin",
	"/admin.php",
	"/.git",
	"/phpmyadmin",
}

func isSuspicious(path string) bool {
	lower := strings.ToLower(path)
	for _, p := range suspiciousPaths {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// SecurityEvents logs probes for well known sensitive paths and every 403.
func SecurityEvents(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if isSuspicious(path) {
			log.Warn("SUSPICIOUS_PATH",
				zap.String("path", path),
				zap.String("ip", c.ClientIP()),
				zap.String("request_id", GetRequestID(c)),
			)
		}

		c.Next()

		if c.Writer.Status() == http.StatusForbidden {
			fields := []zap.Field{
				zap.String("path", path),
				zap.String("method", c.Request.Method),
				zap.String("ip", c.ClientIP()),
				zap.String("request_id", GetRequestID(c)),
			}
			if uid, ok := UserID(c); ok {
				fields = append(fields, zap.Uint("user_id", uid))
			}
			log.Warn("PERMISSION_DENIED", fields...)
		}
	}
}
