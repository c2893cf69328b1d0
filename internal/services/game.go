package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"corrguessr-backend/internal/logging"
	"corrguessr-backend/internal/models"
)

var (
	ErrGameNotFound    = errors.New("game not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotGameOwner    = errors.New("game belongs to another player")
)

// GameStore persists in-progress games for the lifetime of a session.
type GameStore interface {
	SaveGame(ctx context.Context, state *models.GameState) error
	GetGame(ctx context.Context, gameID string) (*models.GameState, error)
	GetPlayerGameID(ctx context.Context, playerID string) (string, error)
	DeleteGame(ctx context.Context, playerID, gameID string) error
}

// GameEngine serializes access to games and keeps recently used ones in
// memory. Each operation is load, mutate through the RoundController,
// save, broadcast.
type GameEngine struct {
	mu          sync.Mutex
	store       GameStore
	controller  *RoundController
	broadcaster Broadcaster
	logger      *slog.Logger
	activeGames map[string]*GameInstance
	now         func() time.Time
}

type GameInstance struct {
	State      *models.GameState
	LastUpdate time.Time
}

func NewGameEngine(store GameStore, controller *RoundController, logger *slog.Logger) *GameEngine {
	if controller == nil {
		controller = NewRoundController(nil)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &GameEngine{
		store:       store,
		controller:  controller,
		broadcaster: noopBroadcaster{},
		logger:      logger,
		activeGames: make(map[string]*GameInstance),
		now:         time.Now,
	}
}

func (ge *GameEngine) SetBroadcaster(b Broadcaster) {
	ge.mu.Lock()
	defer ge.mu.Unlock()

	if b == nil {
		b = noopBroadcaster{}
	}
	ge.broadcaster = b
}

// StartGame replaces the player's current game, if any, with a new one.
func (ge *GameEngine) StartGame(ctx context.Context, playerID string) (*models.GameState, error) {
	ge.mu.Lock()
	defer ge.mu.Unlock()

	if previous, err := ge.store.GetPlayerGameID(ctx, playerID); err == nil {
		if err := ge.store.DeleteGame(ctx, playerID, previous); err != nil {
			return nil, fmt.Errorf("failed to discard previous game: %v", err)
		}
		delete(ge.activeGames, previous)
	} else if !errors.Is(err, ErrGameNotFound) {
		return nil, err
	}

	state := ge.controller.NewGame(models.GenerateGameID(), playerID)
	if err := ge.save(ctx, state); err != nil {
		return nil, err
	}

	ge.logger.Info("game started", "game_id", state.ID, "player_id", playerID)
	ge.traceSample(state)
	ge.broadcaster.BroadcastRoundStarted(playerID, state)

	return cloneState(state), nil
}

func (ge *GameEngine) GetGame(ctx context.Context, playerID, gameID string) (*models.GameState, error) {
	ge.mu.Lock()
	defer ge.mu.Unlock()

	state, err := ge.load(ctx, playerID, gameID)
	if err != nil {
		return nil, err
	}
	return cloneState(state), nil
}

// CurrentGame returns the player's most recent game.
func (ge *GameEngine) CurrentGame(ctx context.Context, playerID string) (*models.GameState, error) {
	gameID, err := ge.store.GetPlayerGameID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return ge.GetGame(ctx, playerID, gameID)
}

func (ge *GameEngine) SubmitGuess(ctx context.Context, playerID, gameID string, guess float64) (*models.GameState, *models.Round, error) {
	ge.mu.Lock()
	defer ge.mu.Unlock()

	state, err := ge.load(ctx, playerID, gameID)
	if err != nil {
		return nil, nil, err
	}

	// Score a copy so a failed save leaves the cached game untouched.
	next := cloneState(state)
	round, err := ge.controller.SubmitGuess(next, guess)
	if err != nil {
		return nil, nil, err
	}
	if err := ge.save(ctx, next); err != nil {
		return nil, nil, err
	}

	ge.logger.Info("guess scored",
		"game_id", gameID,
		"round", round.Index,
		"realized", round.RealizedCorrelation,
		"guess", round.Guess,
		"error", round.AbsoluteError,
	)
	ge.broadcaster.BroadcastRoundScored(playerID, gameID, *round)

	if total, ok := ge.controller.FinalScore(next); ok {
		ge.logger.Info("game finished", "game_id", gameID, "total_error", total)
		ge.broadcaster.BroadcastGameFinished(playerID, gameID, total, next.Rounds)
	}

	return cloneState(next), round, nil
}

// AdvanceRound moves to the next round. advanced is false when the game
// had already finished.
func (ge *GameEngine) AdvanceRound(ctx context.Context, playerID, gameID string) (state *models.GameState, advanced bool, err error) {
	ge.mu.Lock()
	defer ge.mu.Unlock()

	current, err := ge.load(ctx, playerID, gameID)
	if err != nil {
		return nil, false, err
	}

	next := cloneState(current)
	advanced, err = ge.controller.AdvanceRound(next)
	if err != nil {
		return nil, false, err
	}
	if !advanced {
		return cloneState(current), false, nil
	}
	if err := ge.save(ctx, next); err != nil {
		return nil, false, err
	}

	ge.logger.Debug("round advanced", "game_id", gameID, "round", next.Round)
	ge.traceSample(next)
	ge.broadcaster.BroadcastRoundStarted(playerID, next)

	return cloneState(next), true, nil
}

// Reset replays the game from round one.
func (ge *GameEngine) Reset(ctx context.Context, playerID, gameID string) (*models.GameState, error) {
	ge.mu.Lock()
	defer ge.mu.Unlock()

	current, err := ge.load(ctx, playerID, gameID)
	if err != nil {
		return nil, err
	}

	next := cloneState(current)
	ge.controller.Reset(next)
	if err := ge.save(ctx, next); err != nil {
		return nil, err
	}

	ge.logger.Info("game reset", "game_id", gameID, "player_id", playerID)
	ge.traceSample(next)
	ge.broadcaster.BroadcastRoundStarted(playerID, next)

	return cloneState(next), nil
}

// AbandonGame discards the player's game.
func (ge *GameEngine) AbandonGame(ctx context.Context, playerID, gameID string) error {
	ge.mu.Lock()
	defer ge.mu.Unlock()

	if _, err := ge.load(ctx, playerID, gameID); err != nil {
		return err
	}
	if err := ge.store.DeleteGame(ctx, playerID, gameID); err != nil {
		return fmt.Errorf("failed to delete game: %v", err)
	}
	delete(ge.activeGames, gameID)

	ge.logger.Info("game abandoned", "game_id", gameID, "player_id", playerID)
	return nil
}

// CleanupStaleGames evicts games idle longer than maxAge from memory. The
// store keeps them until their TTL expires.
func (ge *GameEngine) CleanupStaleGames(maxAge time.Duration) int {
	ge.mu.Lock()
	defer ge.mu.Unlock()

	evicted := 0
	for id, instance := range ge.activeGames {
		if ge.now().Sub(instance.LastUpdate) > maxAge {
			delete(ge.activeGames, id)
			evicted++
		}
	}

	if evicted > 0 {
		ge.logger.Debug("evicted stale games", "count", evicted)
	}
	return evicted
}

func (ge *GameEngine) ActiveGameCount() int {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	return len(ge.activeGames)
}

func (ge *GameEngine) load(ctx context.Context, playerID, gameID string) (*models.GameState, error) {
	instance, ok := ge.activeGames[gameID]
	if !ok {
		state, err := ge.store.GetGame(ctx, gameID)
		if err != nil {
			return nil, err
		}
		instance = &GameInstance{State: state, LastUpdate: ge.now()}
		ge.activeGames[gameID] = instance
	}

	if instance.State.PlayerID != playerID {
		return nil, ErrNotGameOwner
	}

	instance.LastUpdate = ge.now()
	return instance.State, nil
}

func (ge *GameEngine) save(ctx context.Context, state *models.GameState) error {
	if err := ge.store.SaveGame(ctx, state); err != nil {
		return err
	}
	ge.activeGames[state.ID] = &GameInstance{State: state, LastUpdate: ge.now()}
	return nil
}

func (ge *GameEngine) traceSample(state *models.GameState) {
	ge.logger.Log(context.Background(), logging.LevelTrace, "round sample",
		"game_id", state.ID,
		"round", state.Round,
		"target", state.Sample.Target,
		"realized", state.Sample.Realized,
		"x", state.Sample.X,
		"y", state.Sample.Y,
	)
}

// cloneState copies the slices so callers cannot mutate cached games.
func cloneState(state *models.GameState) *models.GameState {
	clone := *state
	clone.Sample.X = append([]float64(nil), state.Sample.X...)
	clone.Sample.Y = append([]float64(nil), state.Sample.Y...)
	clone.Rounds = append([]models.Round(nil), state.Rounds...)
	return &clone
}
