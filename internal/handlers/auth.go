package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"corrguessr-backend/internal/models"
)

type SessionStore interface {
	StorePlayerSession(ctx context.Context, session *models.PlayerSession, expiry time.Duration) error
	GetPlayerSession(ctx context.Context, playerID, sessionID string) (*models.PlayerSession, error)
	DeletePlayerSession(ctx context.Context, playerID, sessionID string) error
}

type TokenIssuer interface {
	GenerateToken(playerID, sessionID string) (string, time.Time, error)
}

type AuthHandler struct {
	sessions   SessionStore
	tokens     TokenIssuer
	sessionTTL time.Duration
}

func NewAuthHandler(sessions SessionStore, tokens TokenIssuer, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		sessions:   sessions,
		tokens:     tokens,
		sessionTTL: sessionTTL,
	}
}

// CreateGuest opens an anonymous session. The body is optional.
func (h *AuthHandler) CreateGuest(c *gin.Context) {
	var req struct {
		Nickname string `json:"nickname" binding:"max=32"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"details": err.Error(),
			})
			return
		}
	}

	now := time.Now()
	session := &models.PlayerSession{
		PlayerID:     models.GeneratePlayerID(),
		SessionID:    models.GenerateSessionID(),
		Nickname:     strings.TrimSpace(req.Nickname),
		CreatedAt:    now,
		LastAccessed: now,
	}

	if err := h.sessions.StorePlayerSession(c.Request.Context(), session, h.sessionTTL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create session",
			"details": err.Error(),
		})
		return
	}

	token, expiresAt, err := h.tokens.GenerateToken(session.PlayerID, session.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to issue token",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      token,
		"expires_at": expiresAt,
		"player": gin.H{
			"player_id": session.PlayerID,
			"nickname":  session.Nickname,
		},
	})
}
