// Package forecast fits a straight line through a series of amounts indexed by
// their position and extrapolates one step ahead.
package forecast

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// MinPoints is the smallest series a line can be fitted to.
const MinPoints = 2

var ErrInsufficientData = errors.New("forecast: at least 2 points are required")

// Line is y = Intercept + Slope*x.
type Line struct {
	Intercept float64
	Slope     float64
}

func (l Line) At(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// Fit returns the ordinary least-squares line through (xs[i], ys[i]).
func Fit(xs, ys []float64) (Line, error) {
	if len(xs) != len(ys) {
		return Line{}, errors.New("forecast: xs and ys differ in length")
	}
	if len(xs) < MinPoints {
		return Line{}, ErrInsufficientData
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return Line{}, errors.New("forecast: degenerate input, x has no variance")
	}
	return Line{Intercept: alpha, Slope: beta}, nil
}

// PredictNext treats each amount's index as x and evaluates the fitted line at
// x = len(amounts).
func PredictNext(amounts []float64) (float64, Line, error) {
	if len(amounts) < MinPoints {
		return 0, Line{}, ErrInsufficientData
	}
	line, err := Fit(positions(len(amounts)), amounts)
	if err != nil {
		return 0, Line{}, err
	}
	return line.At(float64(len(amounts))), line, nil
}

func positions(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs
}
