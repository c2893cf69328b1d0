package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidGuess is the only user-facing error of the scoring loop.
var ErrInvalidGuess = errors.New("guess must be a number between -1 and 1")

func GenerateGameID() string {
	return fmt.Sprintf("game_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GeneratePlayerID() string {
	return uuid.New().String()
}

func GenerateSessionID() string {
	return uuid.New().String()
}

// GuessValue keeps the guess as submitted so that non-numeric input is
// reported as an invalid guess instead of a malformed request.
type GuessValue string

func (g *GuessValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*g = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("guess: %v", err)
		}
		*g = GuessValue(s)
		return nil
	}
	*g = GuessValue(data)
	return nil
}

// ParseGuess converts user input into a guess in [-1, 1]. Only plain
// decimal notation is accepted.
func ParseGuess(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidGuess
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, ErrInvalidGuess
	}
	g := d.InexactFloat64()
	if err := ValidateGuess(g); err != nil {
		return 0, err
	}
	return g, nil
}

func ValidateGuess(g float64) error {
	if math.IsNaN(g) || math.IsInf(g, 0) || g < -1 || g > 1 {
		return ErrInvalidGuess
	}
	return nil
}

// RoundCorrelation rounds to the two decimals shown to the player.
func RoundCorrelation(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// RoundScore rounds an error total for display.
func RoundScore(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// AbsoluteError is |realized - guess| in decimal arithmetic, so that
// 0.42 and 0.10 score exactly 0.32.
func AbsoluteError(realized, guess float64) float64 {
	r := decimal.NewFromFloat(realized)
	g := decimal.NewFromFloat(guess)
	return r.Sub(g).Abs().InexactFloat64()
}

// SumErrors totals recorded round errors.
func SumErrors(rounds []Round) float64 {
	total := decimal.Zero
	for _, r := range rounds {
		total = total.Add(decimal.NewFromFloat(r.AbsoluteError))
	}
	return total.InexactFloat64()
}
