package services

import "corrguessr-backend/internal/models"

// Broadcaster pushes game events to the player's connected front end.
type Broadcaster interface {
	BroadcastRoundStarted(playerID string, state *models.GameState)
	BroadcastRoundScored(playerID, gameID string, round models.Round)
	BroadcastGameFinished(playerID, gameID string, totalError float64, rounds []models.Round)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastRoundStarted(string, *models.GameState)                {}
func (noopBroadcaster) BroadcastRoundScored(string, string, models.Round)              {}
func (noopBroadcaster) BroadcastGameFinished(string, string, float64, []models.Round) {}
