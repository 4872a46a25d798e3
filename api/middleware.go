package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// loggingMiddleware logs every request through the structured logger
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		s.logger.Info("http request", map[string]interface{}{
			"method":      param.Method,
			"path":        param.Path,
			"status_code": param.StatusCode,
			"latency_ms":  param.Latency.Milliseconds(),
			"client_ip":   param.ClientIP,
			"request_id":  param.Keys["request_id"],
		})
		return ""
	})
}

// requestIDMiddleware attaches a request ID, honoring one the client sent
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// identityMiddleware resolves the caller. Authentication happens upstream;
// this service trusts the X-User-ID header the gateway sets. Requests
// without an identity are rejected for everything except health.
func (s *Server) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "X-User-ID header is required",
			})
			return
		}

		c.Set("user_id", userID)
		c.Set("user_name", c.GetHeader("X-User-Name"))
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString("user_id")
}

func userName(c *gin.Context) string {
	return c.GetString("user_name")
}
