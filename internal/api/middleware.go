package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mchen/wallet-backend/internal/auth"
	"github.com/mchen/wallet-backend/internal/models"
	"github.com/mchen/wallet-backend/internal/ratelimit"
	"github.com/sirupsen/logrus"
)

// AuthMiddleware returns a Gin middleware for authentication. Each failure
// mode carries its own reason code so clients can tell a missing credential
// from a bad or stale one.
func AuthMiddleware(authenticator *auth.TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the JWT token from the Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing_token", "Authentication required")
			return
		}

		// Check if the Authorization header starts with "Bearer "
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "invalid_token", "Invalid token format")
			return
		}

		userID, err := authenticator.Verify(parts[1])
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrMissingToken):
				abortUnauthorized(c, "missing_token", "Authentication required")
			case errors.Is(err, auth.ErrExpiredToken):
				abortUnauthorized(c, "expired_token", "Token has expired")
			default:
				abortUnauthorized(c, "invalid_token", "Invalid token")
			}
			return
		}

		// Set the verified user ID in the context
		c.Set("userId", userID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	})
	c.Abort()
}

// RateLimitMiddleware gates every request through the admission controller
// before any other work happens. The client key is the network address:
// admission runs ahead of authentication, so no verified identity exists yet.
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := limiter.Allow(c.Request.Context(), c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(decision.RetryAfterSeconds()))
			c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
				Status:  "error",
				Code:    "rate_limited",
				Message: "Too many requests, try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequestLogger emits one structured log line per request
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"clientIp": c.ClientIP(),
			"duration": time.Since(start).String(),
		}).Info("request handled")
	}
}
