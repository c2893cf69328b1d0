package models

import "time"

type Phase string

const (
	PhaseAwaitingGuess   Phase = "awaiting_guess"
	PhaseAwaitingAdvance Phase = "awaiting_advance"
	PhaseFinished        Phase = "finished"
)

const (
	MaxRounds  = 5
	SampleSize = 50
)

// Sample is one round's scatter data. X holds the standardized draws.
type Sample struct {
	X        []float64 `json:"x"`
	Y        []float64 `json:"y"`
	Target   float64   `json:"target"`
	Realized float64   `json:"realized"`
}

// Points pairs X and Y for scatter rendering.
func (s Sample) Points() []Point {
	points := make([]Point, len(s.X))
	for i := range s.X {
		points[i] = Point{X: s.X[i], Y: s.Y[i]}
	}
	return points
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Round struct {
	Index               int     `json:"round"`
	TargetCorrelation   float64 `json:"target_correlation"`
	RealizedCorrelation float64 `json:"realized_correlation"`
	Guess               float64 `json:"guess"`
	AbsoluteError       float64 `json:"error"`
}

type GameState struct {
	ID         string  `json:"id"`
	PlayerID   string  `json:"player_id"`
	Round      int     `json:"round"`
	MaxRounds  int     `json:"max_rounds"`
	Phase      Phase   `json:"phase"`
	Sample     Sample  `json:"sample"`
	Rounds     []Round `json:"rounds"`
	TotalError float64 `json:"total_error"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (g *GameState) Finished() bool {
	return g.Phase == PhaseFinished
}

// CanGuess reports whether a guess for the current round is accepted.
func (g *GameState) CanGuess() bool {
	return g.Phase == PhaseAwaitingGuess
}

// CanAdvance reports whether the next round can be started.
func (g *GameState) CanAdvance() bool {
	return g.Phase == PhaseAwaitingAdvance
}

// View hides the answer for the round that is still awaiting a guess.
func (g *GameState) View() GameView {
	view := GameView{
		ID:         g.ID,
		Round:      g.Round,
		MaxRounds:  g.MaxRounds,
		Phase:      g.Phase,
		Points:     g.Sample.Points(),
		Rounds:     g.Rounds,
		CanGuess:   g.CanGuess(),
		CanAdvance: g.CanAdvance(),
		CreatedAt:  g.CreatedAt,
		UpdatedAt:  g.UpdatedAt,
	}
	if view.Rounds == nil {
		view.Rounds = []Round{}
	}
	if g.Finished() {
		total := RoundScore(g.TotalError)
		view.TotalError = &total
	}
	return view
}
