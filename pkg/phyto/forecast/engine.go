// Package forecast projects monthly phytoplankton series forward with one of
// five interchangeable algorithms and backtests them against held-out data.
package forecast

import (
	"fmt"
	"math"

	"k8s.io/klog/v2"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/numeric"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/series"
)

const (
	// MinBacktestSamples is the smallest history that can be backtested
	MinBacktestSamples = 12
	// trainFraction is the share of the history used for training in a backtest
	trainFraction = 0.75
	// confidenceHistoryMonths is the history length at which confidence stops growing
	confidenceHistoryMonths = 24
	// confidenceDecayMonths is the e-folding horizon of the confidence decay
	confidenceDecayMonths = 12
)

// Predict forecasts the group's series monthsAhead months past its last sample
func Predict(samples []series.Sample, group common.GroupKey, algorithm Algorithm, monthsAhead int) ([]Prediction, error) {
	if _, ok := descriptors[algorithm]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	points := series.ToPoints(samples, group)
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no samples for group %s", ErrInsufficientData, group)
	}
	return PredictPoints(points, algorithm, monthsAhead)
}

// PredictPoints forecasts monthsAhead steps past the last point
func PredictPoints(points []series.Point, algorithm Algorithm, monthsAhead int) ([]Prediction, error) {
	d, ok := descriptors[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: empty series", ErrInsufficientData)
	}
	if monthsAhead <= 0 {
		return []Prediction{}, nil
	}

	last := int(points[len(points)-1].X)
	predictions := make([]Prediction, 0, monthsAhead)
	fellBack := false
	for steps := 1; steps <= monthsAhead; steps++ {
		v, fb := d.predict(points, steps)
		fellBack = fellBack || fb
		predictions = append(predictions, Prediction{
			Date:       series.MonthStart(last + steps),
			Predicted:  numeric.NonNegative(v),
			Confidence: Confidence(algorithm, steps, len(points)),
		})
	}

	if fellBack {
		klog.V(2).InfoS("Forecast fell back to linear trend",
			"algorithm", algorithm,
			"points", len(points),
			"minPoints", d.MinPoints)
	}
	klog.V(3).InfoS("Generated forecast",
		"algorithm", algorithm,
		"points", len(points),
		"monthsAhead", monthsAhead)

	return predictions, nil
}

// ForecastAll runs every algorithm over the group's series
func ForecastAll(samples []series.Sample, group common.GroupKey, monthsAhead int) (map[Algorithm][]Prediction, error) {
	points := series.ToPoints(samples, group)
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no samples for group %s", ErrInsufficientData, group)
	}

	results := make(map[Algorithm][]Prediction, len(descriptors))
	for _, a := range Algorithms() {
		predictions, err := PredictPoints(points, a, monthsAhead)
		if err != nil {
			return nil, fmt.Errorf("algorithm %s: %w", a, err)
		}
		results[a] = predictions
	}
	return results, nil
}

// Confidence returns base(algorithm) * exp(-steps/12) * min(1, history/24),
// bounded to [0, 1]
func Confidence(algorithm Algorithm, stepsAhead, historyLength int) float64 {
	c := algorithm.BaseConfidence() *
		math.Exp(-float64(stepsAhead)/confidenceDecayMonths) *
		math.Min(1, float64(historyLength)/confidenceHistoryMonths)
	return numeric.Clamp(c, 0, 1)
}

// Backtest returns the accuracy percentage of every algorithm. Histories
// shorter than MinBacktestSamples give an empty map.
func Backtest(samples []series.Sample, group common.GroupKey) map[Algorithm]float64 {
	scores := BacktestScores(series.ToPoints(samples, group))
	accuracy := make(map[Algorithm]float64, len(scores))
	for _, s := range scores {
		accuracy[s.Algorithm] = s.Accuracy
	}
	return accuracy
}

// BacktestScores trains on the first 75% of points and scores predictions
// of the remaining 25%, in algorithm display order
func BacktestScores(points []series.Point) []Score {
	n := len(points)
	if n < MinBacktestSamples {
		klog.V(2).InfoS("Skipping backtest, history too short",
			"points", n,
			"required", MinBacktestSamples)
		return nil
	}

	cut := int(math.Floor(float64(n) * trainFraction))
	train, test := points[:cut], points[cut:]
	actual := make([]float64, len(test))
	for i, p := range test {
		actual[i] = p.Y
	}

	scores := make([]Score, 0, len(descriptors))
	for _, a := range Algorithms() {
		d := descriptors[a]
		predicted := make([]float64, len(test))
		for i := range test {
			v, _ := d.predict(train, i+1)
			predicted[i] = numeric.NonNegative(v)
		}

		rmse := numeric.RMSE(predicted, actual)
		scores = append(scores, Score{
			Algorithm: a,
			RMSE:      rmse,
			Accuracy:  math.Max(0, 100-rmse*100),
		})
	}

	klog.V(3).InfoS("Backtested forecast algorithms",
		"train", len(train),
		"test", len(test))

	return scores
}
