package services

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"corrguessr-backend/internal/models"
)

// maxDrawAttempts bounds redraws of a degenerate sample. With continuous
// uniform draws a retry is practically never needed.
const maxDrawAttempts = 8

var errDegenerateSample = errors.New("degenerate sample")

// Generator produces samples whose realized correlation is close to a
// randomly drawn target. It is not safe for concurrent use.
type Generator struct {
	size   int
	target distuv.Uniform
	unit   distuv.Uniform
}

func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{
		size:   models.SampleSize,
		target: distuv.Uniform{Min: -1, Max: 1, Src: src},
		unit:   distuv.Uniform{Min: 0, Max: 1, Src: src},
	}
}

// NewSeededGenerator returns a generator with a reproducible stream.
func NewSeededGenerator(seed uint64) *Generator {
	return NewGenerator(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (g *Generator) Generate() models.Sample {
	var (
		sample models.Sample
		err    error
	)
	for attempt := 0; attempt < maxDrawAttempts; attempt++ {
		sample, err = g.generate()
		if err == nil {
			return sample
		}
	}
	// Unreachable in practice; an evenly spread line keeps the game playable.
	return fallbackSample(g.size)
}

func (g *Generator) generate() (models.Sample, error) {
	target := models.RoundCorrelation(g.target.Rand())

	x := g.draw()
	e := g.draw()

	xNorm, err := Standardize(x)
	if err != nil {
		return models.Sample{}, err
	}
	eNorm, err := Standardize(e)
	if err != nil {
		return models.Sample{}, err
	}

	ep := Residualize(xNorm, eNorm)

	y := floats.ScaleTo(make([]float64, len(xNorm)), target, xNorm)
	floats.AddScaled(y, math.Sqrt(1-target*target), ep)

	realized, err := Correlation(xNorm, y)
	if err != nil {
		return models.Sample{}, err
	}

	return models.Sample{
		X:        xNorm,
		Y:        y,
		Target:   target,
		Realized: realized,
	}, nil
}

func (g *Generator) draw() []float64 {
	values := make([]float64, g.size)
	for i := range values {
		values[i] = g.unit.Rand()
	}
	return values
}

// Standardize rescales values to zero mean and unit population standard
// deviation.
func Standardize(values []float64) ([]float64, error) {
	mean, std := stat.PopMeanStdDev(values, nil)
	if std == 0 || math.IsNaN(std) {
		return nil, errDegenerateSample
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out, nil
}

// Residualize removes from e the least-squares line of e on x. The result
// is uncorrelated with x in-sample.
func Residualize(x, e []float64) []float64 {
	alpha, beta := stat.LinearRegression(x, e, nil, false)
	out := make([]float64, len(e))
	for i := range e {
		out[i] = e[i] - (alpha + beta*x[i])
	}
	return out
}

// Correlation is the Pearson coefficient of the finite sample, clamped
// to [-1, 1] against rounding drift.
func Correlation(x, y []float64) (float64, error) {
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, errDegenerateSample
	}
	return math.Max(-1, math.Min(1, r)), nil
}

func fallbackSample(size int) models.Sample {
	x := make([]float64, size)
	for i := range x {
		x[i] = float64(i)
	}
	xNorm, _ := Standardize(x)
	y := make([]float64, size)
	copy(y, xNorm)
	return models.Sample{X: xNorm, Y: y, Target: 1, Realized: 1}
}
