package models

import "time"

// PlayerSession is an anonymous guest session. Games are scoped to it and
// expire with it.
type PlayerSession struct {
	PlayerID     string    `json:"player_id"`
	SessionID    string    `json:"session_id"`
	Nickname     string    `json:"nickname,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}
