package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
)

func TestMonthIndex(t *testing.T) {
	jan := time.Date(2020, time.January, 15, 0, 0, 0, 0, time.UTC)
	dec := time.Date(2020, time.December, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2020*12+1, MonthIndex(jan))
	assert.Equal(t, MonthIndex(jan)+11, MonthIndex(dec))
	assert.Equal(t, 0, CalendarMonth(MonthIndex(jan)))
	assert.Equal(t, 11, CalendarMonth(MonthIndex(dec)))

	assert.Equal(t, time.Date(2020, time.December, 1, 0, 0, 0, 0, time.UTC), MonthStart(MonthIndex(dec)))
	assert.Equal(t, time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC), MonthStart(MonthIndex(dec)+1))
}

func TestToPointsSkipsMissing(t *testing.T) {
	samples := []Sample{
		{Date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), Values: map[common.GroupKey]float64{common.GroupDiatoms: 1.5}},
		{Date: time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), Values: map[common.GroupKey]float64{common.GroupMicrocystis: 0.3}},
		{Date: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), Values: map[common.GroupKey]float64{common.GroupDiatoms: 2.5}},
	}

	points := ToPoints(samples, common.GroupDiatoms)
	assert.Equal(t, []Point{
		{X: float64(2021*12 + 1), Y: 1.5},
		{X: float64(2021*12 + 3), Y: 2.5},
	}, points)
}

func TestSortByDate(t *testing.T) {
	samples := []Sample{
		{Date: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	assert.False(t, IsSorted(samples))
	SortByDate(samples)
	assert.True(t, IsSorted(samples))
	assert.Equal(t, time.January, samples[0].Date.Month())
}
