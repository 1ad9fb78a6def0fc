package forecast

import (
	"errors"
	"fmt"
	"time"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/series"
)

var (
	// ErrInsufficientData is returned when a series has no usable points
	ErrInsufficientData = errors.New("insufficient data")
	// ErrUnknownAlgorithm is returned for an unrecognised algorithm name
	ErrUnknownAlgorithm = errors.New("unknown forecast algorithm")
)

// Algorithm names one of the forecasting methods
type Algorithm string

const (
	Linear      Algorithm = "linear"
	Polynomial  Algorithm = "polynomial"
	Seasonal    Algorithm = "seasonal"
	Exponential Algorithm = "exponential"
	ARIMA       Algorithm = "arima"
)

// Prediction is the forecast for one future month
type Prediction struct {
	Date       time.Time `json:"date"`
	Predicted  float64   `json:"predicted"`  // never negative
	Confidence float64   `json:"confidence"` // 0.0-1.0
}

// Score is the backtest result of one algorithm
type Score struct {
	Algorithm Algorithm `json:"algorithm"`
	RMSE      float64   `json:"rmse"`
	Accuracy  float64   `json:"accuracy"` // percent, 0-100
}

// predictFunc extrapolates points by steps months. The bool reports a
// fallback to the linear trend.
type predictFunc func(points []series.Point, steps int) (float64, bool)

// descriptor is the static description of an algorithm
type descriptor struct {
	DisplayName    string
	BaseConfidence float64
	MinPoints      int
	predict        predictFunc
}

var descriptors = map[Algorithm]descriptor{
	Linear:      {DisplayName: "Linear Regression", BaseConfidence: 0.8, MinPoints: 1, predict: predictLinear},
	Polynomial:  {DisplayName: "Polynomial (quadratic)", BaseConfidence: 0.75, MinPoints: 3, predict: predictPolynomial},
	Seasonal:    {DisplayName: "Seasonal Decomposition", BaseConfidence: 0.85, MinPoints: 1, predict: predictSeasonal},
	Exponential: {DisplayName: "Exponential Smoothing", BaseConfidence: 0.7, MinPoints: 1, predict: predictExponential},
	ARIMA:       {DisplayName: "ARIMA-like", BaseConfidence: 0.9, MinPoints: 3, predict: predictARIMA},
}

// Algorithms returns every algorithm in display order
func Algorithms() []Algorithm {
	return []Algorithm{Linear, Polynomial, Seasonal, Exponential, ARIMA}
}

// ParseAlgorithm converts a name to an Algorithm
func ParseAlgorithm(name string) (Algorithm, error) {
	a := Algorithm(name)
	if _, ok := descriptors[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return a, nil
}

// DisplayName returns the human-readable algorithm name
func (a Algorithm) DisplayName() string {
	return descriptors[a].DisplayName
}

// BaseConfidence returns the algorithm's confidence before horizon and
// history adjustments
func (a Algorithm) BaseConfidence() float64 {
	return descriptors[a].BaseConfidence
}

// FallsBack reports whether the algorithm falls back to the linear trend
// for a history of n points
func (a Algorithm) FallsBack(n int) bool {
	d, ok := descriptors[a]
	return ok && a != Linear && n < d.MinPoints
}
