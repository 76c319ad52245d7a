package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"stockaggr/internal/auth"
	"stockaggr/internal/config"
	apperrors "stockaggr/internal/errors"
	"stockaggr/internal/logging"
)

const requestIDKey = "request_id"

// requestIDMiddleware tags every request with an ID, honoring an
// incoming X-Request-ID header.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// requestLogMiddleware logs one structured line per request
func requestLogMiddleware(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(map[string]interface{}{
			"request_id": c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}).Info("request completed")
	}
}

// corsMiddleware adds CORS headers per configuration
func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowOrigin := "*"
	if len(cfg.AllowedOrigins) > 0 {
		allowOrigin = strings.Join(cfg.AllowedOrigins, ", ")
	}
	allowMethods := "GET, POST, PUT, DELETE, OPTIONS"
	if len(cfg.AllowedMethods) > 0 {
		allowMethods = strings.Join(cfg.AllowedMethods, ", ")
	}
	allowHeaders := "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Request-ID"
	if len(cfg.AllowedHeaders) > 0 {
		allowHeaders = strings.Join(cfg.AllowedHeaders, ", ")
	}

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Methods", allowMethods)
		c.Header("Access-Control-Allow-Headers", allowHeaders)
		if cfg.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// rateLimitMiddleware applies a process-wide token bucket
func rateLimitMiddleware(cfg config.RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			respondError(c, apperrors.NewAppError(apperrors.ErrCodeRateLimit, "too many requests", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}

// authMiddleware validates the bearer token on admin routes
func authMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(c, apperrors.NewAppError(apperrors.ErrCodeUnauthorized, "missing bearer token", nil))
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respondError(c, apperrors.NewAppError(apperrors.ErrCodeUnauthorized, "invalid token", err))
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// respondError writes a structured error response with the mapped
// HTTP status.
func respondError(c *gin.Context, err *apperrors.AppError) {
	err.WithRequestID(c.GetString(requestIDKey))
	c.JSON(err.HTTPStatus(), apperrors.NewErrorResponse(err, c.Request.URL.Path))
}

// mapError converts arbitrary handler errors to AppError
func mapError(err error) *apperrors.AppError {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}
	return apperrors.WrapError(err, apperrors.ErrCodeInternal, "internal error")
}
