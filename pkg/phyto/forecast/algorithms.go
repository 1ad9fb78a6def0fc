package forecast

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/series"
)

const (
	// smoothingAlpha is the exponential smoothing factor
	smoothingAlpha = 0.3
	// trendWeight and seasonalWeight blend the seasonal forecast
	trendWeight    = 0.7
	seasonalWeight = 0.3
)

// linearFit returns the ordinary least-squares slope and intercept.
// A single point or a constant x gives a flat line through the mean.
func linearFit(points []series.Point) (slope, intercept float64) {
	xs, ys := split(points)
	if len(points) < 2 || floats.Min(xs) == floats.Max(xs) {
		return 0, stat.Mean(ys, nil)
	}
	intercept, slope = stat.LinearRegression(xs, ys, nil, false)
	return slope, intercept
}

func predictLinear(points []series.Point, steps int) (float64, bool) {
	slope, intercept := linearFit(points)
	last := points[len(points)-1].X
	return slope*(last+float64(steps)) + intercept, false
}

// predictPolynomial evaluates the quadratic through the last three points
func predictPolynomial(points []series.Point, steps int) (float64, bool) {
	n := len(points)
	if n < 3 {
		v, _ := predictLinear(points, steps)
		return v, true
	}

	p0, p1, p2 := points[n-3], points[n-2], points[n-1]
	if p0.X == p1.X || p0.X == p2.X || p1.X == p2.X {
		v, _ := predictLinear(points, steps)
		return v, true
	}

	x := p2.X + float64(steps)
	l0 := (x - p1.X) * (x - p2.X) / ((p0.X - p1.X) * (p0.X - p2.X))
	l1 := (x - p0.X) * (x - p2.X) / ((p1.X - p0.X) * (p1.X - p2.X))
	l2 := (x - p0.X) * (x - p1.X) / ((p2.X - p0.X) * (p2.X - p1.X))
	return p0.Y*l0 + p1.Y*l1 + p2.Y*l2, false
}

// predictSeasonal blends the linear trend with the calendar-month mean.
// Months with no history use the trend alone.
func predictSeasonal(points []series.Point, steps int) (float64, bool) {
	trend, _ := predictLinear(points, steps)

	var sums, counts [12]float64
	for _, p := range points {
		m := series.CalendarMonth(int(p.X))
		sums[m] += p.Y
		counts[m]++
	}

	future := series.CalendarMonth(int(points[len(points)-1].X) + steps)
	if counts[future] == 0 {
		return trend, false
	}
	return trendWeight*trend + seasonalWeight*sums[future]/counts[future], false
}

// predictExponential extrapolates the smoothed level by the most recent change
func predictExponential(points []series.Point, steps int) (float64, bool) {
	level := points[0].Y
	for _, p := range points[1:] {
		level = smoothingAlpha*p.Y + (1-smoothingAlpha)*level
	}

	delta := 0.0
	if n := len(points); n >= 2 {
		delta = points[n-1].Y - points[n-2].Y
	}
	return level + delta*float64(steps), false
}

// predictARIMA fits an AR(1) coefficient to the first differences and
// projects the last change forward
func predictARIMA(points []series.Point, steps int) (float64, bool) {
	n := len(points)
	if n < 3 {
		v, _ := predictLinear(points, steps)
		return v, true
	}

	diffs := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diffs[i-1] = points[i].Y - points[i-1].Y
	}

	var num, den float64
	for i := 1; i < len(diffs); i++ {
		num += diffs[i] * diffs[i-1]
		den += diffs[i-1] * diffs[i-1]
	}
	coeff := 0.0
	if den != 0 {
		coeff = num / den
	}

	lastDiff := diffs[len(diffs)-1]
	return points[n-1].Y + coeff*lastDiff*float64(steps), false
}

func split(points []series.Point) (xs, ys []float64) {
	xs = make([]float64, len(points))
	ys = make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return xs, ys
}
