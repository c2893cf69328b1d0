package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"corrguessr-backend/internal/middleware"
	"corrguessr-backend/internal/services"
)

type RouterConfig struct {
	Sessions   SessionStore
	JWT        *services.JWTService
	Limiter    middleware.RateLimiter
	GameEngine *services.GameEngine
	WebSocket  *WebSocketHandler

	SessionTTL     time.Duration
	GuessRateLimit int
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	authHandler := NewAuthHandler(cfg.Sessions, cfg.JWT, cfg.SessionTTL)
	userHandler := NewUserHandler(cfg.Sessions, cfg.GameEngine)
	gameHandler := NewGameHandler(cfg.GameEngine)

	router := gin.Default()
	router.Use(middleware.CORS())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/auth/guest", authHandler.CreateGuest)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg.JWT, cfg.Sessions))
	{
		protected.GET("/me", userHandler.GetCurrentPlayer)
		protected.POST("/logout", userHandler.Logout)

		if cfg.WebSocket != nil {
			protected.GET("/ws", cfg.WebSocket.HandleWebSocket)
		}

		games := protected.Group("/games")
		{
			games.POST("", gameHandler.StartGame)
			games.GET("/:id", gameHandler.GetGame)
			games.GET("/:id/sample", gameHandler.GetSample)
			games.GET("/:id/rounds", gameHandler.GetResults)
			games.POST("/:id/guess",
				middleware.RateLimitMiddleware(cfg.Limiter, "guess", cfg.GuessRateLimit, time.Minute),
				gameHandler.SubmitGuess,
			)
			games.POST("/:id/next", gameHandler.NextRound)
			games.POST("/:id/replay", gameHandler.Replay)
		}
	}

	return router
}
