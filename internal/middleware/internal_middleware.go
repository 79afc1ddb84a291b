package middleware

import (
	"net/http"

	"photofix-api/config"
	"photofix-api/pkg/errors"
	"photofix-api/pkg/utils"

	"github.com/gin-gonic/gin"
)

// InternalMiddleware guards endpoints that are only reachable
// service-to-service: the cron trigger and the enhancement endpoint.
type InternalMiddleware struct {
	config *config.Config
}

func NewInternalMiddleware(cfg *config.Config) *InternalMiddleware {
	return &InternalMiddleware{config: cfg}
}

// RequireCronSecret compares the bearer token against the configured cron
// secret. A mismatch rejects the request before any work is attempted.
func (m *InternalMiddleware) RequireCronSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		const bearerPrefix = "Bearer "
		if m.config.Queue.CronSecret == "" ||
			len(authHeader) <= len(bearerPrefix) ||
			authHeader[:len(bearerPrefix)] != bearerPrefix ||
			!utils.SecureCompare(authHeader[len(bearerPrefix):], m.config.Queue.CronSecret) {
			c.JSON(http.StatusUnauthorized, errors.ErrorResponse{
				Error:   errors.ErrUnauthorized.Code,
				Message: "Invalid or missing cron secret",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireInternalService validates the X-Internal-Service trust header that
// distinguishes cron-originated calls from user-originated ones.
func (m *InternalMiddleware) RequireInternalService() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Internal-Service")
		if m.config.Queue.InternalToken == "" || !utils.SecureCompare(token, m.config.Queue.InternalToken) {
			c.JSON(http.StatusUnauthorized, errors.ErrorResponse{
				Error:   errors.ErrUnauthorized.Code,
				Message: "Internal service token required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
