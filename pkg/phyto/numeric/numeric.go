// Package numeric holds the small response curves and statistics helpers
// shared by the response model and the PCA engine.
package numeric

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrZeroVariance is returned when a column cannot be standardized
var ErrZeroVariance = errors.New("zero variance")

// Saturating returns the Michaelis-Menten response c/(c+ks).
// Negative concentrations are treated as absent. When both terms are zero
// the response is defined as 0 instead of NaN.
func Saturating(concentration, halfSaturation float64) float64 {
	c := math.Max(0, concentration)
	denom := c + halfSaturation
	if denom <= 0 {
		return 0
	}
	return c / denom
}

// Q10 returns q10^((t-reference)/10).
// A non-positive coefficient disables the kinetics and yields 1.
func Q10(q10, t, reference float64) float64 {
	if q10 <= 0 {
		return 1
	}
	return math.Pow(q10, (t-reference)/10)
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// NonNegative clamps v to [0, +Inf)
func NonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Standardize returns the z-scores of x using the sample (n-1) standard
// deviation, along with the mean and standard deviation used.
func Standardize(x []float64) (z []float64, mean, std float64, err error) {
	if len(x) < 2 {
		return nil, 0, 0, errors.New("at least two values are required")
	}
	mean, std = stat.MeanStdDev(x, nil)
	if std == 0 || math.IsNaN(std) {
		return nil, mean, std, ErrZeroVariance
	}
	z = make([]float64, len(x))
	for i, v := range x {
		z[i] = (v - mean) / std
	}
	return z, mean, std, nil
}

// RMSE returns the root mean square error between predicted and actual
func RMSE(predicted, actual []float64) float64 {
	n := len(actual)
	if len(predicted) < n {
		n = len(predicted)
	}
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := predicted[i] - actual[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}
