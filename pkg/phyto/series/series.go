// Package series holds the caller-owned observation samples and their
// projection onto (month index, value) pairs.
package series

import (
	"sort"
	"time"

	"k8s.io/klog/v2"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
)

// Sample is one dated observation of every functional group
type Sample struct {
	Date   time.Time                   `json:"date"`
	Values map[common.GroupKey]float64 `json:"values"`
}

// Point is a single (month index, value) pair
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MonthIndex returns the monotonic month index year*12+month of t
func MonthIndex(t time.Time) int {
	return t.Year()*common.MonthsPerYear + int(t.Month())
}

// CalendarMonth returns the 0-based calendar month of a month index
func CalendarMonth(x int) int {
	m := (x - 1) % common.MonthsPerYear
	if m < 0 {
		m += common.MonthsPerYear
	}
	return m
}

// MonthStart returns the first instant (UTC) of the month with index x
func MonthStart(x int) time.Time {
	year := (x - 1) / common.MonthsPerYear
	return time.Date(year, time.Month(CalendarMonth(x)+1), 1, 0, 0, 0, 0, time.UTC)
}

// ToPoints projects the samples onto the group's values. Samples without a
// value for the group are skipped.
func ToPoints(samples []Sample, group common.GroupKey) []Point {
	points := make([]Point, 0, len(samples))
	skipped := 0
	for _, s := range samples {
		v, ok := s.Values[group]
		if !ok {
			skipped++
			continue
		}
		points = append(points, Point{X: float64(MonthIndex(s.Date)), Y: v})
	}
	if skipped > 0 {
		klog.V(2).InfoS("Skipped samples without a value for group",
			"group", group,
			"skipped", skipped,
			"kept", len(points))
	}
	return points
}

// IsSorted reports whether samples are in non-decreasing date order
func IsSorted(samples []Sample) bool {
	return sort.SliceIsSorted(samples, func(i, j int) bool {
		return samples[i].Date.Before(samples[j].Date)
	})
}

// SortByDate sorts samples in place by date
func SortByDate(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Date.Before(samples[j].Date)
	})
}
