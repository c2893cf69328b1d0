package services_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"corrguessr-backend/internal/models"
	"corrguessr-backend/internal/services"
)

type memoryStore struct {
	mu          sync.Mutex
	games       map[string]models.GameState
	playerGames map[string]string
	failSave    bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		games:       make(map[string]models.GameState),
		playerGames: make(map[string]string),
	}
}

func (m *memoryStore) SaveGame(ctx context.Context, state *models.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("store unavailable")
	}
	m.games[state.ID] = *state
	m.playerGames[state.PlayerID] = state.ID
	return nil
}

func (m *memoryStore) GetGame(ctx context.Context, gameID string) (*models.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", services.ErrGameNotFound, gameID)
	}
	return &state, nil
}

func (m *memoryStore) GetPlayerGameID(ctx context.Context, playerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gameID, ok := m.playerGames[playerID]
	if !ok {
		return "", services.ErrGameNotFound
	}
	return gameID, nil
}

func (m *memoryStore) DeleteGame(ctx context.Context, playerID, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, gameID)
	if m.playerGames[playerID] == gameID {
		delete(m.playerGames, playerID)
	}
	return nil
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	started  int
	scored   []models.Round
	finished []float64
}

func (r *recordingBroadcaster) BroadcastRoundStarted(playerID string, state *models.GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingBroadcaster) BroadcastRoundScored(playerID, gameID string, round models.Round) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scored = append(r.scored, round)
}

func (r *recordingBroadcaster) BroadcastGameFinished(playerID, gameID string, totalError float64, rounds []models.Round) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, totalError)
}

func newTestEngine(t *testing.T) (*services.GameEngine, *memoryStore, *recordingBroadcaster) {
	t.Helper()
	store := newMemoryStore()
	rc := services.NewRoundController(services.NewSeededGenerator(2024))
	engine := services.NewGameEngine(store, rc, nil)
	broadcaster := &recordingBroadcaster{}
	engine.SetBroadcaster(broadcaster)
	return engine, store, broadcaster
}

func TestGameEnginePlaysFullGame(t *testing.T) {
	engine, store, broadcaster := newTestEngine(t)
	ctx := context.Background()
	playerID := "player-1"

	state, err := engine.StartGame(ctx, playerID)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if state.Phase != models.PhaseAwaitingGuess || state.Round != 1 {
		t.Fatalf("new game: %+v", state)
	}

	var sum float64
	for i := 1; i <= models.MaxRounds; i++ {
		next, round, err := engine.SubmitGuess(ctx, playerID, state.ID, 0)
		if err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
		if round.Index != i {
			t.Errorf("round index = %d, want %d", round.Index, i)
		}
		if math.Abs(round.AbsoluteError-math.Abs(round.RealizedCorrelation)) > 1e-12 {
			t.Errorf("round %d: error %v for realized %v and guess 0", i, round.AbsoluteError, round.RealizedCorrelation)
		}
		sum += round.AbsoluteError

		if i < models.MaxRounds {
			if next.Phase != models.PhaseAwaitingAdvance {
				t.Fatalf("round %d phase = %s", i, next.Phase)
			}
			advanced, advancedOK, err := engine.AdvanceRound(ctx, playerID, state.ID)
			if err != nil || !advancedOK {
				t.Fatalf("advance after round %d: %v, %v", i, advancedOK, err)
			}
			if advanced.Round != i+1 {
				t.Errorf("advanced to round %d, want %d", advanced.Round, i+1)
			}
		} else if next.Phase != models.PhaseFinished {
			t.Fatalf("last round phase = %s, want finished", next.Phase)
		}
	}

	stored, err := store.GetGame(ctx, state.ID)
	if err != nil {
		t.Fatalf("store.GetGame: %v", err)
	}
	if !stored.Finished() || math.Abs(stored.TotalError-sum) > 1e-9 {
		t.Errorf("stored game: phase=%s total=%v, want finished %v", stored.Phase, stored.TotalError, sum)
	}

	if broadcaster.started != models.MaxRounds {
		t.Errorf("round started events = %d, want %d", broadcaster.started, models.MaxRounds)
	}
	if len(broadcaster.scored) != models.MaxRounds {
		t.Errorf("round scored events = %d, want %d", len(broadcaster.scored), models.MaxRounds)
	}
	if len(broadcaster.finished) != 1 || math.Abs(broadcaster.finished[0]-sum) > 1e-9 {
		t.Errorf("finished events = %v, want one with total %v", broadcaster.finished, sum)
	}

	final, advanced, err := engine.AdvanceRound(ctx, playerID, state.ID)
	if err != nil || advanced {
		t.Errorf("AdvanceRound after finish = %v, %v; want no-op", advanced, err)
	}
	if final.Round != models.MaxRounds || !final.Finished() {
		t.Errorf("AdvanceRound after finish changed the game: %+v", final)
	}
	if broadcaster.started != models.MaxRounds {
		t.Error("AdvanceRound after finish broadcast a new round")
	}

	replay, err := engine.Reset(ctx, playerID, state.ID)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if replay.Round != 1 || replay.Phase != models.PhaseAwaitingGuess || len(replay.Rounds) != 0 || replay.TotalError != 0 {
		t.Errorf("after reset: %+v", replay)
	}
}

func TestGameEngineInvalidGuessLeavesStateUnchanged(t *testing.T) {
	engine, _, broadcaster := newTestEngine(t)
	ctx := context.Background()

	state, err := engine.StartGame(ctx, "p")
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	if _, _, err := engine.SubmitGuess(ctx, "p", state.ID, 2); !errors.Is(err, services.ErrInvalidGuess) {
		t.Fatalf("SubmitGuess(2) error = %v, want ErrInvalidGuess", err)
	}

	after, err := engine.GetGame(ctx, "p", state.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if after.Round != 1 || len(after.Rounds) != 0 || after.TotalError != 0 || after.Phase != models.PhaseAwaitingGuess {
		t.Errorf("invalid guess changed the game: %+v", after)
	}
	if len(broadcaster.scored) != 0 {
		t.Error("invalid guess was broadcast")
	}
}

func TestGameEngineOwnership(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	state, err := engine.StartGame(ctx, "owner")
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	if _, err := engine.GetGame(ctx, "intruder", state.ID); !errors.Is(err, services.ErrNotGameOwner) {
		t.Errorf("GetGame by another player error = %v, want ErrNotGameOwner", err)
	}
	if _, _, err := engine.SubmitGuess(ctx, "intruder", state.ID, 0); !errors.Is(err, services.ErrNotGameOwner) {
		t.Errorf("SubmitGuess by another player error = %v, want ErrNotGameOwner", err)
	}
	if _, err := engine.GetGame(ctx, "owner", "missing"); !errors.Is(err, services.ErrGameNotFound) {
		t.Errorf("GetGame on missing game error = %v, want ErrGameNotFound", err)
	}
}

func TestGameEngineStartGameReplacesPrevious(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.StartGame(ctx, "p")
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	second, err := engine.StartGame(ctx, "p")
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("second game reused the first game's ID")
	}

	if _, err := store.GetGame(ctx, first.ID); !errors.Is(err, services.ErrGameNotFound) {
		t.Errorf("previous game still stored: %v", err)
	}

	current, err := engine.CurrentGame(ctx, "p")
	if err != nil {
		t.Fatalf("CurrentGame: %v", err)
	}
	if current.ID != second.ID {
		t.Errorf("CurrentGame = %s, want %s", current.ID, second.ID)
	}
}

func TestGameEngineFailedSaveKeepsState(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	state, err := engine.StartGame(ctx, "p")
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	store.failSave = true
	if _, _, err := engine.SubmitGuess(ctx, "p", state.ID, 0.5); err == nil {
		t.Fatal("SubmitGuess should fail when the store is unavailable")
	}
	store.failSave = false

	after, err := engine.GetGame(ctx, "p", state.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if len(after.Rounds) != 0 || after.Phase != models.PhaseAwaitingGuess {
		t.Errorf("failed save mutated the cached game: %+v", after)
	}
}

func TestGameEngineAbandonAndCleanup(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	a, _ := engine.StartGame(ctx, "a")
	if _, err := engine.StartGame(ctx, "b"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if engine.ActiveGameCount() != 2 {
		t.Fatalf("active games = %d, want 2", engine.ActiveGameCount())
	}

	if err := engine.AbandonGame(ctx, "a", a.ID); err != nil {
		t.Fatalf("AbandonGame: %v", err)
	}
	if _, err := store.GetGame(ctx, a.ID); !errors.Is(err, services.ErrGameNotFound) {
		t.Errorf("abandoned game still stored: %v", err)
	}

	if n := engine.CleanupStaleGames(time.Hour); n != 0 {
		t.Errorf("evicted %d fresh games", n)
	}
	time.Sleep(5 * time.Millisecond)
	if n := engine.CleanupStaleGames(time.Millisecond); n != 1 {
		t.Errorf("evicted %d games, want 1", n)
	}
	if engine.ActiveGameCount() != 0 {
		t.Errorf("active games = %d after cleanup", engine.ActiveGameCount())
	}

	// Evicted games reload from the store.
	if _, err := engine.CurrentGame(ctx, "b"); err != nil {
		t.Errorf("CurrentGame after eviction: %v", err)
	}
}

func TestGameEngineReturnsCopies(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	state, _ := engine.StartGame(ctx, "p")
	state.Sample.X[0] = 1000
	state.Phase = models.PhaseFinished

	again, err := engine.GetGame(ctx, "p", state.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if again.Sample.X[0] == 1000 || again.Phase != models.PhaseAwaitingGuess {
		t.Error("caller mutation leaked into the engine's game")
	}
}
