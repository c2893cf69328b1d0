package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"corrguessr-backend/internal/config"
	"corrguessr-backend/internal/handlers"
	"corrguessr-backend/internal/logging"
	"corrguessr-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.IsProduction(), os.Stderr)

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		logger.Error("failed to connect to redis", "addr", cfg.RedisURL, "error", err)
		os.Exit(1)
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}

	controller := services.NewRoundController(services.NewGenerator(nil))
	gameEngine := services.NewGameEngine(redisService, controller, logger)
	wsHandler := handlers.NewWebSocketHandler(gameEngine, logger)
	defer wsHandler.Close()
	gameEngine.SetBroadcaster(wsHandler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				gameEngine.CleanupStaleGames(cfg.StaleGameAge)
			case <-ctx.Done():
				return
			}
		}
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Sessions:       redisService,
		JWT:            jwtService,
		Limiter:        redisService,
		GameEngine:     gameEngine,
		WebSocket:      wsHandler,
		SessionTTL:     cfg.SessionTTL,
		GuessRateLimit: cfg.GuessRateLimit,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
