package models

import "time"

type GuessRequest struct {
	Guess GuessValue `json:"guess"`
}

type GameView struct {
	ID         string    `json:"id"`
	Round      int       `json:"round"`
	MaxRounds  int       `json:"max_rounds"`
	Phase      Phase     `json:"phase"`
	Points     []Point   `json:"points"`
	Rounds     []Round   `json:"rounds"`
	CanGuess   bool      `json:"can_guess"`
	CanAdvance bool      `json:"can_advance"`
	TotalError *float64  `json:"total_error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type GuessResponse struct {
	GameID   string   `json:"game_id"`
	Round    Round    `json:"result"`
	Phase    Phase    `json:"phase"`
	GameOver bool     `json:"game_over"`
	Total    *float64 `json:"total_error,omitempty"`
}

type ResultsResponse struct {
	GameID     string  `json:"game_id"`
	Rounds     []Round `json:"rounds"`
	TotalError float64 `json:"total_error"`
	Finished   bool    `json:"finished"`
}
