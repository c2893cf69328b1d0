package services

import (
	"errors"
	"fmt"
	"time"

	"corrguessr-backend/internal/models"
)

var (
	ErrInvalidGuess     = models.ErrInvalidGuess
	ErrSubmissionClosed = errors.New("guess already submitted for this round")
	ErrRoundInProgress  = errors.New("current round is still awaiting a guess")
)

// SampleSource supplies one sample per round.
type SampleSource interface {
	Generate() models.Sample
}

// RoundController drives the round state machine of a single game:
// awaiting_guess -> awaiting_advance -> awaiting_guess ... -> finished.
// All state lives in the GameState passed to each call.
type RoundController struct {
	samples SampleSource
	now     func() time.Time
}

func NewRoundController(samples SampleSource) *RoundController {
	if samples == nil {
		samples = NewGenerator(nil)
	}
	return &RoundController{
		samples: samples,
		now:     time.Now,
	}
}

func (rc *RoundController) NewGame(id, playerID string) *models.GameState {
	now := rc.now()
	state := &models.GameState{
		ID:        id,
		PlayerID:  playerID,
		MaxRounds: models.MaxRounds,
		CreatedAt: now,
	}
	rc.Reset(state)
	return state
}

// SubmitGuess scores g against the current round. On error the state is
// left untouched.
func (rc *RoundController) SubmitGuess(state *models.GameState, g float64) (*models.Round, error) {
	if !state.CanGuess() {
		return nil, ErrSubmissionClosed
	}
	if err := models.ValidateGuess(g); err != nil {
		return nil, fmt.Errorf("round %d: %w", state.Round, err)
	}

	realized := models.RoundCorrelation(state.Sample.Realized)
	round := models.Round{
		Index:               state.Round,
		TargetCorrelation:   state.Sample.Target,
		RealizedCorrelation: realized,
		Guess:               g,
		AbsoluteError:       models.AbsoluteError(realized, g),
	}

	state.Rounds = append(state.Rounds, round)
	state.TotalError = models.SumErrors(state.Rounds)
	state.UpdatedAt = rc.now()

	if state.Round >= state.MaxRounds {
		rc.endGame(state)
	} else {
		state.Phase = models.PhaseAwaitingAdvance
	}

	return &round, nil
}

// AdvanceRound starts the next round. It reports false, without touching
// the state, once the game is finished.
func (rc *RoundController) AdvanceRound(state *models.GameState) (bool, error) {
	switch state.Phase {
	case models.PhaseFinished:
		return false, nil
	case models.PhaseAwaitingGuess:
		return false, ErrRoundInProgress
	}

	state.Round++
	state.Sample = rc.samples.Generate()
	state.Phase = models.PhaseAwaitingGuess
	state.UpdatedAt = rc.now()
	return true, nil
}

// Reset starts the game over at round one with a fresh sample.
func (rc *RoundController) Reset(state *models.GameState) {
	state.Round = 1
	state.Rounds = nil
	state.TotalError = 0
	if state.MaxRounds == 0 {
		state.MaxRounds = models.MaxRounds
	}
	state.Sample = rc.samples.Generate()
	state.Phase = models.PhaseAwaitingGuess
	state.UpdatedAt = rc.now()
}

// FinalScore returns the total error once the game is finished.
func (rc *RoundController) FinalScore(state *models.GameState) (float64, bool) {
	if !state.Finished() {
		return 0, false
	}
	return state.TotalError, true
}

func (rc *RoundController) endGame(state *models.GameState) {
	state.Phase = models.PhaseFinished
}
