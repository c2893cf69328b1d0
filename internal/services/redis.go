package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"corrguessr-backend/internal/config"
	"corrguessr-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisService holds player sessions and in-progress games. Every key
// carries a TTL; nothing outlives the session that created it.
type RedisService struct {
	client  *redis.Client
	gameTTL time.Duration
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	gameTTL := TTLGameState
	if cfg.SessionTTL > 0 {
		gameTTL = cfg.SessionTTL
	}

	return &RedisService{
		client:  client,
		gameTTL: gameTTL,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// StorePlayerSession saves the session and marks it as the player's active
// one. Game keys are capped at the active session's remaining TTL.
func (s *RedisService) StorePlayerSession(ctx context.Context, session *models.PlayerSession, expiry time.Duration) error {
	key := fmt.Sprintf(KeyPlayerSession, session.PlayerID, session.SessionID)

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal player session: %v", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, expiry)
	pipe.Set(ctx, fmt.Sprintf(KeyPlayerActive, session.PlayerID), session.SessionID, expiry)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store player session: %v", err)
	}
	return nil
}

// GetPlayerSession loads a session and refreshes its last-accessed time
// without extending its expiry.
func (s *RedisService) GetPlayerSession(ctx context.Context, playerID, sessionID string) (*models.PlayerSession, error) {
	key := fmt.Sprintf(KeyPlayerSession, playerID, sessionID)

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get player session: %v", err)
	}

	var session models.PlayerSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player session: %v", err)
	}

	session.LastAccessed = time.Now()
	if updated, err := json.Marshal(session); err == nil {
		s.client.SetArgs(ctx, key, updated, redis.SetArgs{KeepTTL: true})
	}

	return &session, nil
}

var deleteSessionScript = redis.NewScript(`
	local sessionKey = KEYS[1]
	local activeKey = KEYS[2]
	local sessionID = ARGV[1]

	redis.call("DEL", sessionKey)
	if redis.call("GET", activeKey) == sessionID then
		redis.call("DEL", activeKey)
	end

	return "OK"
`)

func (s *RedisService) DeletePlayerSession(ctx context.Context, playerID, sessionID string) error {
	keys := []string{
		fmt.Sprintf(KeyPlayerSession, playerID, sessionID),
		fmt.Sprintf(KeyPlayerActive, playerID),
	}
	return deleteSessionScript.Run(ctx, s.client, keys, sessionID).Err()
}

// saveGameScript writes the game and the player's pointer to it with a TTL
// no longer than the active session's. It returns 0 when the player has no
// live session.
var saveGameScript = redis.NewScript(`
	local gameKey = KEYS[1]
	local playerKey = KEYS[2]
	local activeKey = KEYS[3]
	local ttl = tonumber(ARGV[3])

	local sessionTTL = redis.call("PTTL", activeKey)
	if sessionTTL == -2 or sessionTTL == 0 then
		return 0
	end
	if sessionTTL > 0 and sessionTTL < ttl then
		ttl = sessionTTL
	end

	redis.call("SET", gameKey, ARGV[1], "PX", ttl)
	redis.call("SET", playerKey, ARGV[2], "PX", ttl)

	return ttl
`)

func (s *RedisService) SaveGame(ctx context.Context, state *models.GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %v", err)
	}

	keys := []string{
		fmt.Sprintf(KeyGameState, state.ID),
		fmt.Sprintf(KeyPlayerGame, state.PlayerID),
		fmt.Sprintf(KeyPlayerActive, state.PlayerID),
	}
	ttl, err := saveGameScript.Run(ctx, s.client, keys, data, state.ID, s.gameTTL.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to save game state: %v", err)
	}
	if ttl == 0 {
		return fmt.Errorf("saving game %s: %w", state.ID, ErrSessionNotFound)
	}
	return nil
}

func (s *RedisService) GetGame(ctx context.Context, gameID string) (*models.GameState, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyGameState, gameID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
		}
		return nil, fmt.Errorf("failed to get game state: %v", err)
	}

	var state models.GameState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game state: %v", err)
	}

	return &state, nil
}

func (s *RedisService) GetPlayerGameID(ctx context.Context, playerID string) (string, error) {
	gameID, err := s.client.Get(ctx, fmt.Sprintf(KeyPlayerGame, playerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrGameNotFound
		}
		return "", fmt.Errorf("failed to get player game: %v", err)
	}
	return gameID, nil
}

var deleteGameScript = redis.NewScript(`
	local gameKey = KEYS[1]
	local playerKey = KEYS[2]
	local gameID = ARGV[1]

	redis.call("DEL", gameKey)
	if redis.call("GET", playerKey) == gameID then
		redis.call("DEL", playerKey)
	end

	return "OK"
`)

// DeleteGame drops the game and, if it is still the player's current
// game, the player's pointer to it.
func (s *RedisService) DeleteGame(ctx context.Context, playerID, gameID string) error {
	keys := []string{
		fmt.Sprintf(KeyGameState, gameID),
		fmt.Sprintf(KeyPlayerGame, playerID),
	}
	return deleteGameScript.Run(ctx, s.client, keys, gameID).Err()
}

var rateLimitScript = redis.NewScript(`
	local key = KEYS[1]
	local window = tonumber(ARGV[1])

	local count = redis.call("INCR", key)
	if count == 1 then
		redis.call("PEXPIRE", key, window)
	end

	return count
`)

func (s *RedisService) CheckRateLimit(ctx context.Context, playerID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, playerID, action)

	count, err := rateLimitScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, playerID, action string) error {
	key := fmt.Sprintf(KeyRateLimit, playerID, action)
	return s.client.Del(ctx, key).Err()
}
