package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"corrguessr-backend/internal/middleware"
	"corrguessr-backend/internal/services"
)

type UserHandler struct {
	sessions   SessionStore
	gameEngine *services.GameEngine
}

func NewUserHandler(sessions SessionStore, gameEngine *services.GameEngine) *UserHandler {
	return &UserHandler{
		sessions:   sessions,
		gameEngine: gameEngine,
	}
}

func (h *UserHandler) GetCurrentPlayer(c *gin.Context) {
	playerID := c.GetString(middleware.ContextPlayerID)
	sessionID := c.GetString(middleware.ContextSessionID)

	session, err := h.sessions.GetPlayerSession(c.Request.Context(), playerID, sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired or invalid"})
		return
	}

	response := gin.H{
		"player": gin.H{
			"player_id": session.PlayerID,
			"nickname":  session.Nickname,
		},
		"session": gin.H{
			"session_id":    session.SessionID,
			"created_at":    session.CreatedAt,
			"last_accessed": session.LastAccessed,
		},
	}

	game, err := h.gameEngine.CurrentGame(c.Request.Context(), playerID)
	switch {
	case err == nil:
		response["game"] = game.View()
	case !errors.Is(err, services.ErrGameNotFound):
		respondError(c, err, "Failed to load current game")
		return
	}

	c.JSON(http.StatusOK, response)
}

// Logout ends the session and discards its game.
func (h *UserHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	playerID := c.GetString(middleware.ContextPlayerID)
	sessionID := c.GetString(middleware.ContextSessionID)

	if game, err := h.gameEngine.CurrentGame(ctx, playerID); err == nil {
		if err := h.gameEngine.AbandonGame(ctx, playerID, game.ID); err != nil {
			respondError(c, err, "Failed to discard game")
			return
		}
	}

	if err := h.sessions.DeletePlayerSession(ctx, playerID, sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
