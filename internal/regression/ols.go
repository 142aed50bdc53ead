package regression

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/ambientderate/internal/types"
)

// sample is one fitted point.
type sample struct {
	entity string
	x      float64
	y      float64
}

type lineFit struct {
	slope     float64
	intercept float64
	rSquared  float64
}

// fitLine is ordinary least squares y = slope*x + intercept. The returned
// reason is non-empty when the samples cannot determine a line.
func fitLine(x, y []float64) (lineFit, string) {
	if len(x) < 2 {
		return lineFit{}, "fewer than two samples"
	}
	if !varies(x) {
		return lineFit{}, "no predictor variation"
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)

	predicted := make([]float64, len(x))
	for i, v := range x {
		predicted[i] = slope*v + intercept
	}

	return lineFit{
		slope:     slope,
		intercept: intercept,
		rSquared:  rSquared(y, predicted),
	}, ""
}

// rSquared is the coefficient of determination of predicted against y. A
// constant y is explained perfectly only by a perfect fit.
func rSquared(y, predicted []float64) float64 {
	meanY := stat.Mean(y, nil)

	var ssTot, ssRes float64
	for i := range y {
		ssTot += math.Pow(y[i]-meanY, 2)
		ssRes += math.Pow(y[i]-predicted[i], 2)
	}

	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// exploratory returns the Pearson correlation and covariance of samples below
// the exploratory curtailment cap.
func exploratory(samples []sample) (float64, float64) {
	var x, y []float64
	for _, s := range samples {
		if s.y < types.ExploratoryCurtailmentCap {
			x = append(x, s.x)
			y = append(y, s.y)
		}
	}
	if len(x) < 2 {
		return math.NaN(), math.NaN()
	}
	return stat.Correlation(x, y, nil), stat.Covariance(x, y, nil)
}

func varies(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return true
		}
	}
	return false
}

func split(samples []sample) ([]float64, []float64) {
	x := make([]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = s.x
		y[i] = s.y
	}
	return x, y
}
