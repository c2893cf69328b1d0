package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"corrguessr-backend/internal/config"
	"corrguessr-backend/internal/models"
	"corrguessr-backend/internal/services"
)

func setupTestRedis(t *testing.T) *services.RedisService {
	t.Helper()

	cfg := config.Default()
	cfg.RedisDB = 15

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { redisService.Close() })
	return redisService
}

func storeSession(t *testing.T, redisService *services.RedisService, playerID string, expiry time.Duration) *models.PlayerSession {
	t.Helper()

	session := &models.PlayerSession{
		PlayerID:  playerID,
		SessionID: models.GenerateSessionID(),
		CreatedAt: time.Now(),
	}
	if err := redisService.StorePlayerSession(context.Background(), session, expiry); err != nil {
		t.Fatalf("StorePlayerSession: %v", err)
	}
	t.Cleanup(func() {
		redisService.DeletePlayerSession(context.Background(), session.PlayerID, session.SessionID)
	})
	return session
}

func TestRedisServiceGameState(t *testing.T) {
	redisService := setupTestRedis(t)
	ctx := context.Background()

	rc := services.NewRoundController(services.NewSeededGenerator(1))
	playerID := models.GeneratePlayerID()
	storeSession(t, redisService, playerID, time.Minute)
	state := rc.NewGame(models.GenerateGameID(), playerID)
	if _, err := rc.SubmitGuess(state, 0.25); err != nil {
		t.Fatalf("SubmitGuess: %v", err)
	}

	if err := redisService.SaveGame(ctx, state); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	defer redisService.DeleteGame(ctx, playerID, state.ID)

	loaded, err := redisService.GetGame(ctx, state.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if loaded.Phase != state.Phase || len(loaded.Rounds) != 1 || loaded.Sample.Realized != state.Sample.Realized {
		t.Errorf("loaded game differs: %+v", loaded)
	}

	gameID, err := redisService.GetPlayerGameID(ctx, playerID)
	if err != nil || gameID != state.ID {
		t.Errorf("GetPlayerGameID = %q, %v; want %q", gameID, err, state.ID)
	}

	if err := redisService.DeleteGame(ctx, playerID, state.ID); err != nil {
		t.Fatalf("DeleteGame: %v", err)
	}
	if _, err := redisService.GetGame(ctx, state.ID); !errors.Is(err, services.ErrGameNotFound) {
		t.Errorf("GetGame after delete error = %v, want ErrGameNotFound", err)
	}
	if _, err := redisService.GetPlayerGameID(ctx, playerID); !errors.Is(err, services.ErrGameNotFound) {
		t.Errorf("GetPlayerGameID after delete error = %v, want ErrGameNotFound", err)
	}
}

func TestRedisServiceGameRequiresSession(t *testing.T) {
	redisService := setupTestRedis(t)
	ctx := context.Background()

	rc := services.NewRoundController(services.NewSeededGenerator(2))
	playerID := models.GeneratePlayerID()
	state := rc.NewGame(models.GenerateGameID(), playerID)

	if err := redisService.SaveGame(ctx, state); !errors.Is(err, services.ErrSessionNotFound) {
		t.Fatalf("SaveGame without session error = %v, want ErrSessionNotFound", err)
	}

	session := storeSession(t, redisService, playerID, time.Minute)
	if err := redisService.SaveGame(ctx, state); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	defer redisService.DeleteGame(ctx, playerID, state.ID)

	if err := redisService.DeletePlayerSession(ctx, playerID, session.SessionID); err != nil {
		t.Fatalf("DeletePlayerSession: %v", err)
	}
	if err := redisService.SaveGame(ctx, state); !errors.Is(err, services.ErrSessionNotFound) {
		t.Errorf("SaveGame after logout error = %v, want ErrSessionNotFound", err)
	}
}

func TestRedisServiceGameExpiresWithSession(t *testing.T) {
	redisService := setupTestRedis(t)
	ctx := context.Background()

	rc := services.NewRoundController(services.NewSeededGenerator(3))
	playerID := models.GeneratePlayerID()
	storeSession(t, redisService, playerID, 500*time.Millisecond)

	state := rc.NewGame(models.GenerateGameID(), playerID)
	if err := redisService.SaveGame(ctx, state); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	defer redisService.DeleteGame(ctx, playerID, state.ID)

	time.Sleep(800 * time.Millisecond)

	if _, err := redisService.GetGame(ctx, state.ID); !errors.Is(err, services.ErrGameNotFound) {
		t.Errorf("GetGame after session expiry error = %v, want ErrGameNotFound", err)
	}
	if _, err := redisService.GetPlayerGameID(ctx, playerID); !errors.Is(err, services.ErrGameNotFound) {
		t.Errorf("GetPlayerGameID after session expiry error = %v, want ErrGameNotFound", err)
	}
}

func TestRedisServicePlayerSession(t *testing.T) {
	redisService := setupTestRedis(t)
	ctx := context.Background()

	session := &models.PlayerSession{
		PlayerID:  models.GeneratePlayerID(),
		SessionID: models.GenerateSessionID(),
		CreatedAt: time.Now(),
	}

	if err := redisService.StorePlayerSession(ctx, session, time.Minute); err != nil {
		t.Fatalf("StorePlayerSession: %v", err)
	}

	loaded, err := redisService.GetPlayerSession(ctx, session.PlayerID, session.SessionID)
	if err != nil {
		t.Fatalf("GetPlayerSession: %v", err)
	}
	if loaded.PlayerID != session.PlayerID || loaded.LastAccessed.IsZero() {
		t.Errorf("unexpected session %+v", loaded)
	}

	if err := redisService.DeletePlayerSession(ctx, session.PlayerID, session.SessionID); err != nil {
		t.Fatalf("DeletePlayerSession: %v", err)
	}
	if _, err := redisService.GetPlayerSession(ctx, session.PlayerID, session.SessionID); !errors.Is(err, services.ErrSessionNotFound) {
		t.Errorf("GetPlayerSession after delete error = %v, want ErrSessionNotFound", err)
	}
}

func TestRedisServiceRateLimit(t *testing.T) {
	redisService := setupTestRedis(t)
	ctx := context.Background()

	playerID := models.GeneratePlayerID()
	defer redisService.ClearRateLimit(ctx, playerID, "guess")

	for i := 0; i < 3; i++ {
		allowed, err := redisService.CheckRateLimit(ctx, playerID, "guess", 3, time.Minute)
		if err != nil {
			t.Fatalf("CheckRateLimit: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, err := redisService.CheckRateLimit(ctx, playerID, "guess", 3, time.Minute)
	if err != nil {
		t.Fatalf("CheckRateLimit: %v", err)
	}
	if allowed {
		t.Error("fourth request should be rate limited")
	}
}
