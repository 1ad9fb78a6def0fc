package analyzer

import (
	"slices"
	"time"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/forecast"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/pca"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/response"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/series"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/spatial"
)

// SampleSource supplies the historical series. store.SampleStore satisfies it.
type SampleSource interface {
	All() ([]series.Sample, error)
}

// StaticSamples serves a fixed, caller-owned series
type StaticSamples []series.Sample

func (s StaticSamples) All() ([]series.Sample, error) {
	return s, nil
}

// HeatmapResult is a synthesized grid with the terms at its base conditions
type HeatmapResult struct {
	Group      common.GroupKey     `json:"group"`
	Base       response.Conditions `json:"base"`
	BaseTerms  response.Terms      `json:"baseTerms"`
	Grid       spatial.Grid        `json:"grid"`
	Stats      spatial.GridStats   `json:"stats"`
	Seeded     bool                `json:"seeded"`
	ComputedAt time.Time           `json:"computedAt"`
}

// clone copies the grid so cached results stay independent of callers
func (r HeatmapResult) clone() HeatmapResult {
	r.Grid = r.Grid.Clone()
	return r
}

// ForecastResult is one algorithm's projection of a group's series
type ForecastResult struct {
	Group       common.GroupKey       `json:"group"`
	Algorithm   forecast.Algorithm    `json:"algorithm"`
	DisplayName string                `json:"displayName"`
	History     int                   `json:"history"`
	FellBack    bool                  `json:"fellBack"` // short history, linear trend used
	Predictions []forecast.Prediction `json:"predictions"`
}

func (r ForecastResult) clone() ForecastResult {
	r.Predictions = slices.Clone(r.Predictions)
	return r
}

// BacktestResult scores every algorithm against the held-out tail
type BacktestResult struct {
	Group   common.GroupKey  `json:"group"`
	History int              `json:"history"`
	Scores  []forecast.Score `json:"scores"` // empty below forecast.MinBacktestSamples
}

func (r BacktestResult) clone() BacktestResult {
	r.Scores = slices.Clone(r.Scores)
	return r
}

// PCAResult is the two-component reduction of calendar-month means
type PCAResult struct {
	Groups []common.GroupKey `json:"groups"`
	Months []time.Month      `json:"months"`
	*pca.Result
}
