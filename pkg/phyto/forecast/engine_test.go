package forecast

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/series"
)

// monthly builds consecutive monthly diatom samples starting January 2020
func monthly(values ...float64) []series.Sample {
	samples := make([]series.Sample, len(values))
	for i, v := range values {
		samples[i] = series.Sample{
			Date:   time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0),
			Values: map[common.GroupKey]float64{common.GroupDiatoms: v},
		}
	}
	return samples
}

func constant(v float64, n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = v
	}
	return values
}

func TestPredictConstantSeries(t *testing.T) {
	samples := monthly(constant(0.5, 24)...)

	for _, a := range Algorithms() {
		t.Run(string(a), func(t *testing.T) {
			predictions, err := Predict(samples, common.GroupDiatoms, a, 6)
			require.NoError(t, err)
			require.Len(t, predictions, 6)

			for i, p := range predictions {
				assert.InDelta(t, 0.5, p.Predicted, 1e-9)
				assert.InDelta(t, a.BaseConfidence()*math.Exp(-float64(i+1)/12), p.Confidence, 1e-12)
			}
			assert.Equal(t, time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC), predictions[0].Date)
			assert.Equal(t, time.Date(2022, time.June, 1, 0, 0, 0, 0, time.UTC), predictions[5].Date)
		})
	}
}

func TestPredictConfidenceDecays(t *testing.T) {
	predictions, err := Predict(monthly(1, 2, 3, 4, 5, 6), common.GroupDiatoms, Seasonal, 12)
	require.NoError(t, err)

	for i := 1; i < len(predictions); i++ {
		assert.Less(t, predictions[i].Confidence, predictions[i-1].Confidence)
	}
	// six months of history scales confidence by a quarter
	assert.InDelta(t, 0.85*math.Exp(-1.0/12)*0.25, predictions[0].Confidence, 1e-12)
}

func TestPredictClampsNegative(t *testing.T) {
	predictions, err := Predict(monthly(5, 4, 3, 2, 1), common.GroupDiatoms, Linear, 4)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, predictions[0].Predicted, 1e-9)
	for _, p := range predictions {
		assert.GreaterOrEqual(t, p.Predicted, 0.0)
	}
}

func TestPredictFallbackParity(t *testing.T) {
	samples := monthly(1.0, 1.4)

	linear, err := Predict(samples, common.GroupDiatoms, Linear, 3)
	require.NoError(t, err)

	for _, a := range []Algorithm{Polynomial, ARIMA} {
		assert.True(t, a.FallsBack(2))
		got, err := Predict(samples, common.GroupDiatoms, a, 3)
		require.NoError(t, err)
		for i := range got {
			assert.InDelta(t, linear[i].Predicted, got[i].Predicted, 1e-12, "algorithm %s step %d", a, i+1)
		}
	}
	assert.False(t, Linear.FallsBack(1))
	assert.False(t, Polynomial.FallsBack(3))
}

func TestPredictSingleSample(t *testing.T) {
	for _, a := range Algorithms() {
		predictions, err := Predict(monthly(0.8), common.GroupDiatoms, a, 2)
		require.NoError(t, err)
		assert.InDelta(t, 0.8, predictions[1].Predicted, 1e-12, "algorithm %s", a)
	}
}

func TestPredictEdgeCases(t *testing.T) {
	tests := []struct {
		name        string
		samples     []series.Sample
		algorithm   Algorithm
		monthsAhead int
		wantErr     error
		wantLen     int
	}{
		{
			name:        "no samples",
			algorithm:   Linear,
			monthsAhead: 3,
			wantErr:     ErrInsufficientData,
		},
		{
			name:        "unknown algorithm",
			samples:     monthly(1, 2, 3),
			algorithm:   Algorithm("prophet"),
			monthsAhead: 3,
			wantErr:     ErrUnknownAlgorithm,
		},
		{
			name:        "zero horizon",
			samples:     monthly(1, 2, 3),
			algorithm:   Exponential,
			monthsAhead: 0,
			wantLen:     0,
		},
		{
			name:        "negative horizon",
			samples:     monthly(1, 2, 3),
			algorithm:   ARIMA,
			monthsAhead: -2,
			wantLen:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			predictions, err := Predict(tt.samples, common.GroupDiatoms, tt.algorithm, tt.monthsAhead)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, predictions)
			assert.Len(t, predictions, tt.wantLen)
		})
	}
}

func TestForecastAll(t *testing.T) {
	results, err := ForecastAll(monthly(constant(0.5, 24)...), common.GroupDiatoms, 3)
	require.NoError(t, err)
	assert.Len(t, results, len(Algorithms()))
	for _, a := range Algorithms() {
		assert.Len(t, results[a], 3)
	}

	_, err = ForecastAll(nil, common.GroupDiatoms, 3)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestBacktest(t *testing.T) {
	t.Run("short history", func(t *testing.T) {
		accuracy := Backtest(monthly(constant(0.5, 11)...), common.GroupDiatoms)
		assert.NotNil(t, accuracy)
		assert.Empty(t, accuracy)
	})

	t.Run("constant history", func(t *testing.T) {
		accuracy := Backtest(monthly(constant(0.5, 24)...), common.GroupDiatoms)
		require.Len(t, accuracy, 5)
		for a, v := range accuracy {
			assert.InDelta(t, 100.0, v, 1e-6, "algorithm %s", a)
		}
	})

	t.Run("linear trend", func(t *testing.T) {
		values := make([]float64, 16)
		for i := range values {
			values[i] = 0.1 * float64(i)
		}
		scores := BacktestScores(series.ToPoints(monthly(values...), common.GroupDiatoms))
		require.Len(t, scores, 5)
		assert.Equal(t, Linear, scores[0].Algorithm)
		assert.InDelta(t, 0.0, scores[0].RMSE, 1e-9)
		assert.InDelta(t, 100.0, scores[0].Accuracy, 1e-7)
		for _, s := range scores {
			assert.GreaterOrEqual(t, s.Accuracy, 0.0)
			assert.LessOrEqual(t, s.Accuracy, 100.0)
		}
	})

	t.Run("large error floors at zero", func(t *testing.T) {
		values := append(constant(0, 9), 50, 50, 50)
		accuracy := Backtest(monthly(values...), common.GroupDiatoms)
		assert.InDelta(t, 0.0, accuracy[Linear], 1e-12)
	})
}

func TestConfidenceBounds(t *testing.T) {
	assert.InDelta(t, 0.9*math.Exp(-1.0/12), Confidence(ARIMA, 1, 240), 1e-12)
	assert.Equal(t, 0.0, Confidence(Algorithm("unknown"), 1, 24))
	assert.LessOrEqual(t, Confidence(Seasonal, 0, 100), 1.0)
}
