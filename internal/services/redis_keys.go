package services

import "time"

const (
	KeyPlayerSession = "player:%s:session:%s"
	KeyPlayerActive  = "player:%s:active_session"
	KeyGameState     = "game:state:%s"
	KeyPlayerGame    = "player:%s:game"
	KeyRateLimit     = "ratelimit:%s:%s"

	TTLPlayerSession = 24 * time.Hour
	TTLGameState     = 24 * time.Hour // upper bound, capped by the session's remaining TTL

	DefaultRateLimitGuesses = 60 // Max 60 guesses per minute
)
