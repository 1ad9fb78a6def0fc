package pca

import (
	"time"

	"k8s.io/klog/v2"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/series"
)

// Aggregate is a months x groups matrix of calendar-month means
type Aggregate struct {
	Months []time.Month
	Groups []common.GroupKey
	Matrix [][]float64
}

// AggregateMonthly averages every group per calendar month. Months missing a
// value for any of the groups are left out.
func AggregateMonthly(samples []series.Sample, groups []common.GroupKey) Aggregate {
	var (
		sums   [common.MonthsPerYear][]float64
		counts [common.MonthsPerYear][]int
	)
	for m := range sums {
		sums[m] = make([]float64, len(groups))
		counts[m] = make([]int, len(groups))
	}
	for _, s := range samples {
		m := int(s.Date.Month()) - 1
		for j, g := range groups {
			if v, ok := s.Values[g]; ok {
				sums[m][j] += v
				counts[m][j]++
			}
		}
	}

	agg := Aggregate{Groups: groups}
	dropped := 0
	for m := 0; m < common.MonthsPerYear; m++ {
		row := make([]float64, len(groups))
		complete := len(groups) > 0
		for j := range groups {
			if counts[m][j] == 0 {
				complete = false
				break
			}
			row[j] = sums[m][j] / float64(counts[m][j])
		}
		if !complete {
			dropped++
			continue
		}
		agg.Months = append(agg.Months, time.Month(m+1))
		agg.Matrix = append(agg.Matrix, row)
	}

	klog.V(3).InfoS("Aggregated samples by calendar month",
		"samples", len(samples),
		"months", len(agg.Months),
		"dropped", dropped)

	return agg
}
