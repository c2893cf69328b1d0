package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"corrguessr-backend/internal/middleware"
	"corrguessr-backend/internal/models"
	"corrguessr-backend/internal/services"
)

type GameHandler struct {
	gameEngine *services.GameEngine
}

func NewGameHandler(gameEngine *services.GameEngine) *GameHandler {
	return &GameHandler{gameEngine: gameEngine}
}

func (h *GameHandler) StartGame(c *gin.Context) {
	playerID := c.GetString(middleware.ContextPlayerID)

	state, err := h.gameEngine.StartGame(c.Request.Context(), playerID)
	if err != nil {
		respondError(c, err, "Failed to start game")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"game":    state.View(),
	})
}

func (h *GameHandler) GetGame(c *gin.Context) {
	playerID := c.GetString(middleware.ContextPlayerID)

	state, err := h.gameEngine.GetGame(c.Request.Context(), playerID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get game")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game":    state.View(),
	})
}

// GetSample returns the scatter points of the current round.
func (h *GameHandler) GetSample(c *gin.Context) {
	playerID := c.GetString(middleware.ContextPlayerID)

	state, err := h.gameEngine.GetGame(c.Request.Context(), playerID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get sample")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game_id": state.ID,
		"round":   state.Round,
		"points":  state.Sample.Points(),
	})
}

func (h *GameHandler) SubmitGuess(c *gin.Context) {
	playerID := c.GetString(middleware.ContextPlayerID)

	var req models.GuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	guess, err := models.ParseGuess(string(req.Guess))
	if err != nil {
		respondError(c, err, "Invalid guess")
		return
	}

	state, round, err := h.gameEngine.SubmitGuess(c.Request.Context(), playerID, c.Param("id"), guess)
	if err != nil {
		respondError(c, err, "Failed to submit guess")
		return
	}

	response := models.GuessResponse{
		GameID:   state.ID,
		Round:    *round,
		Phase:    state.Phase,
		GameOver: state.Finished(),
	}
	if state.Finished() {
		total := models.RoundScore(state.TotalError)
		response.Total = &total
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  response,
	})
}

func (h *GameHandler) NextRound(c *gin.Context) {
	playerID := c.GetString(middleware.ContextPlayerID)

	state, advanced, err := h.gameEngine.AdvanceRound(c.Request.Context(), playerID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to advance round")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"advanced": advanced,
		"game":     state.View(),
	})
}

func (h *GameHandler) Replay(c *gin.Context) {
	playerID := c.GetString(middleware.ContextPlayerID)

	state, err := h.gameEngine.Reset(c.Request.Context(), playerID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to replay game")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game":    state.View(),
	})
}

// GetResults is the results table: one row per scored round.
func (h *GameHandler) GetResults(c *gin.Context) {
	playerID := c.GetString(middleware.ContextPlayerID)

	state, err := h.gameEngine.GetGame(c.Request.Context(), playerID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get results")
		return
	}

	rounds := state.Rounds
	if rounds == nil {
		rounds = []models.Round{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": models.ResultsResponse{
			GameID:     state.ID,
			Rounds:     rounds,
			TotalError: models.RoundScore(state.TotalError),
			Finished:   state.Finished(),
		},
	})
}
