package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/series"
)

func pts(xy ...float64) []series.Point {
	points := make([]series.Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		points = append(points, series.Point{X: xy[i], Y: xy[i+1]})
	}
	return points
}

func TestLinearFit(t *testing.T) {
	slope, intercept := linearFit(pts(1, 3, 2, 5, 3, 7))
	assert.InDelta(t, 2.0, slope, 1e-12)
	assert.InDelta(t, 1.0, intercept, 1e-12)

	slope, intercept = linearFit(pts(4, 2, 4, 6))
	assert.Equal(t, 0.0, slope)
	assert.InDelta(t, 4.0, intercept, 1e-12)

	v, fellBack := predictLinear(pts(1, 3, 2, 5, 3, 7), 2)
	assert.False(t, fellBack)
	assert.InDelta(t, 11.0, v, 1e-12)
}

func TestPredictPolynomial(t *testing.T) {
	v, fellBack := predictPolynomial(pts(0, 100, 1, 1, 2, 4, 3, 9), 1)
	assert.False(t, fellBack)
	assert.InDelta(t, 16.0, v, 1e-9)

	v, _ = predictPolynomial(pts(1, 1, 2, 4, 3, 9), 2)
	assert.InDelta(t, 25.0, v, 1e-9)

	// duplicate x falls back to the trend
	_, fellBack = predictPolynomial(pts(1, 1, 2, 4, 2, 5), 1)
	assert.True(t, fellBack)
}

func TestPredictSeasonal(t *testing.T) {
	points := pts(1, 1, 2, 1, 13, 3)

	tests := []struct {
		name     string
		steps    int
		monthAvg float64
		hasMonth bool
	}{
		{name: "february has history", steps: 1, monthAvg: 1, hasMonth: true},
		{name: "march has none", steps: 2},
		{name: "january averages two years", steps: 12, monthAvg: 2, hasMonth: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trend, _ := predictLinear(points, tt.steps)
			want := trend
			if tt.hasMonth {
				want = 0.7*trend + 0.3*tt.monthAvg
			}
			got, fellBack := predictSeasonal(points, tt.steps)
			assert.False(t, fellBack)
			assert.InDelta(t, want, got, 1e-12)
		})
	}
}

func TestPredictExponential(t *testing.T) {
	v, _ := predictExponential(pts(1, 1, 2, 2, 3, 4), 2)
	// level 1 -> 1.3 -> 2.11, last change 2
	assert.InDelta(t, 6.11, v, 1e-12)

	v, _ = predictExponential(pts(1, 3), 5)
	assert.InDelta(t, 3.0, v, 1e-12)
}

func TestPredictARIMA(t *testing.T) {
	// diffs 1, 2, 4 give an AR(1) coefficient of 2
	v, fellBack := predictARIMA(pts(1, 1, 2, 2, 3, 4, 4, 8), 1)
	assert.False(t, fellBack)
	assert.InDelta(t, 16.0, v, 1e-12)

	v, _ = predictARIMA(pts(1, 1, 2, 2, 3, 4, 4, 8), 3)
	assert.InDelta(t, 32.0, v, 1e-12)

	// zero variance in the lagged differences leaves the last value
	v, _ = predictARIMA(pts(1, 2, 2, 2, 3, 2), 4)
	assert.InDelta(t, 2.0, v, 1e-12)
}
