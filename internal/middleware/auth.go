package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"corrguessr-backend/internal/models"
	"corrguessr-backend/internal/services"
)

const (
	ContextPlayerID  = "player_id"
	ContextSessionID = "session_id"
)

type TokenValidator interface {
	ValidateToken(tokenString string) (*services.Claims, error)
}

// SessionChecker confirms that the session behind a token is still live.
type SessionChecker interface {
	GetPlayerSession(ctx context.Context, playerID, sessionID string) (*models.PlayerSession, error)
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, playerID, action string, limit int, window time.Duration) (bool, error)
}

// AuthMiddleware accepts a token only while its session exists, so a
// token stops working at logout or session expiry.
func AuthMiddleware(tokens TokenValidator, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			// Browsers cannot set headers on WebSocket upgrades.
			tokenString = c.Query("token")
			if tokenString == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
				c.Abort()
				return
			}
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		if _, err := sessions.GetPlayerSession(c.Request.Context(), claims.PlayerID, claims.SessionID); err != nil {
			if errors.Is(err, services.ErrSessionNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired or invalid"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Session check failed"})
			}
			c.Abort()
			return
		}

		c.Set(ContextPlayerID, claims.PlayerID)
		c.Set(ContextSessionID, claims.SessionID)

		c.Next()
	}
}

// RateLimitMiddleware allows limit requests per player per window for the
// routes it wraps.
func RateLimitMiddleware(limiter RateLimiter, action string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := c.GetString(ContextPlayerID)
		if playerID == "" {
			c.Next()
			return
		}

		allowed, err := limiter.CheckRateLimit(c.Request.Context(), playerID, action, limit, window)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			c.Abort()
			return
		}
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
