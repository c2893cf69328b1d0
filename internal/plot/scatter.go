// Package plot renders scatter samples as text for terminal play.
package plot

import (
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/gonum/floats"

	"corrguessr-backend/internal/models"
)

const (
	DefaultWidth  = 60
	DefaultHeight = 20
)

// marks by number of points falling in one cell
var marks = []byte{' ', '.', 'o', '@'}

// Scatter draws the sample inside a framed width x height grid with y
// growing upwards.
func Scatter(w io.Writer, sample models.Sample, width, height int) error {
	if width < 2 || height < 2 {
		return fmt.Errorf("plot area %dx%d too small", width, height)
	}
	if len(sample.X) == 0 || len(sample.X) != len(sample.Y) {
		return fmt.Errorf("sample has %d x and %d y values", len(sample.X), len(sample.Y))
	}

	xMin, xMax := floats.Min(sample.X), floats.Max(sample.X)
	yMin, yMax := floats.Min(sample.Y), floats.Max(sample.Y)

	counts := make([][]int, height)
	for i := range counts {
		counts[i] = make([]int, width)
	}

	for i := range sample.X {
		col := cell(sample.X[i], xMin, xMax, width)
		row := height - 1 - cell(sample.Y[i], yMin, yMax, height)
		counts[row][col]++
	}

	var b strings.Builder
	border := "+" + strings.Repeat("-", width) + "+\n"
	b.WriteString(border)
	for _, row := range counts {
		b.WriteByte('|')
		for _, n := range row {
			if n >= len(marks) {
				n = len(marks) - 1
			}
			b.WriteByte(marks[n])
		}
		b.WriteString("|\n")
	}
	b.WriteString(border)
	fmt.Fprintf(&b, " x: [%.2f, %.2f]  y: [%.2f, %.2f]\n", xMin, xMax, yMin, yMax)

	_, err := io.WriteString(w, b.String())
	return err
}

func cell(v, lo, hi float64, n int) int {
	if hi == lo {
		return n / 2
	}
	idx := int((v - lo) / (hi - lo) * float64(n-1))
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}
