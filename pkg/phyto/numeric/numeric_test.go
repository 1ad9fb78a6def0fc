package numeric

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaturating(t *testing.T) {
	tests := []struct {
		name     string
		c, ks    float64
		expected float64
	}{
		{name: "half saturation", c: 0.1, ks: 0.1, expected: 0.5},
		{name: "zero concentration", c: 0, ks: 0.1, expected: 0},
		{name: "both zero", c: 0, ks: 0, expected: 0},
		{name: "negative concentration", c: -1, ks: 0.2, expected: 0},
		{name: "no half saturation", c: 3, ks: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Saturating(tt.c, tt.ks)
			assert.False(t, math.IsNaN(got))
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}
}

func TestSaturatingMonotonic(t *testing.T) {
	prev := -1.0
	for c := 0.0; c <= 50; c += 0.25 {
		v := Saturating(c, 0.1)
		assert.GreaterOrEqual(t, v, prev, "response decreased at c=%v", c)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
		prev = v
	}
}

func TestQ10(t *testing.T) {
	assert.InDelta(t, 1.0, Q10(2.0, 18, 18), 1e-12)
	assert.InDelta(t, 2.0, Q10(2.0, 28, 18), 1e-12)
	assert.InDelta(t, 0.5, Q10(2.0, 8, 18), 1e-12)
	assert.Equal(t, 1.0, Q10(0, 8, 18))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-2, 0, 1))
	assert.Equal(t, 1.0, Clamp(3, 0, 1))
	assert.Equal(t, 0.4, Clamp(0.4, 0, 1))
	assert.Equal(t, 0.0, NonNegative(-0.01))
	assert.Equal(t, 2.5, NonNegative(2.5))
}

func TestStandardize(t *testing.T) {
	z, mean, std, err := Standardize([]float64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), std, 1e-12)

	sum := 0.0
	for _, v := range z {
		sum += v
	}
	assert.InDelta(t, 0.0, sum, 1e-12)
	assert.InDelta(t, -2/math.Sqrt(2.5), z[0], 1e-12)

	_, _, _, err = Standardize([]float64{4, 4, 4})
	assert.True(t, errors.Is(err, ErrZeroVariance))

	_, _, _, err = Standardize([]float64{4})
	assert.Error(t, err)
}

func TestRMSE(t *testing.T) {
	assert.InDelta(t, 0.0, RMSE([]float64{1, 2}, []float64{1, 2}), 1e-12)
	assert.InDelta(t, 1.0, RMSE([]float64{2, 3}, []float64{1, 2}), 1e-12)
	assert.Equal(t, 0.0, RMSE(nil, nil))
}
