// Package analyzer composes the response model, spatial synthesis,
// forecasting and PCA over a persisted sample history, with result caching
// and metrics.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"k8s.io/klog/v2"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/cache"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/clock"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/config"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/forecast"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/metrics"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/pca"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/response"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/series"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/spatial"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/species"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/store"
)

// ErrReadOnlySource is returned by Import when the source cannot store samples
var ErrReadOnlySource = errors.New("sample source is read-only")

// Analyzer runs engine operations against a sample source
type Analyzer struct {
	config  *config.Config
	catalog *species.Catalog
	synth   *spatial.Synthesizer
	source  SampleSource
	clock   clock.Clock

	grids     *cache.Cache[HeatmapResult]
	forecasts *cache.Cache[ForecastResult]
	backtests *cache.Cache[BacktestResult]
}

// New creates an analyzer from a validated configuration
func New(cfg *config.Config, source SampleSource, clk clock.Clock) (*Analyzer, error) {
	if clk == nil {
		clk = clock.RealClock{}
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to build species catalog: %w", err)
	}

	ttl, maxAge := cfg.Forecast.CacheTTL, cfg.Forecast.MaxCacheAge
	return &Analyzer{
		config:  cfg,
		catalog: catalog,
		synth: spatial.NewSynthesizer(catalog, spatial.Options{
			Seed:    cfg.Heatmap.Seed,
			Workers: cfg.Heatmap.Workers,
		}),
		source:    source,
		clock:     clk,
		grids:     cache.New[HeatmapResult](ttl, maxAge, clk),
		forecasts: cache.New[ForecastResult](ttl, maxAge, clk),
		backtests: cache.New[BacktestResult](ttl, maxAge, clk),
	}, nil
}

// Close stops the cache sweepers
func (a *Analyzer) Close() {
	a.grids.Close()
	a.forecasts.Close()
	a.backtests.Close()
}

// Catalog returns the species catalog in use
func (a *Analyzer) Catalog() *species.Catalog {
	return a.catalog
}

// observe records the duration and outcome of an operation
func (a *Analyzer) observe(operation string, start time.Time, cached bool, err error) {
	metrics.OperationDuration.WithLabelValues(operation).Observe(a.clock.Since(start).Seconds())
	result := "success"
	switch {
	case err != nil:
		result = "error"
		klog.ErrorS(err, "Analytics operation failed", "operation", operation)
	case cached:
		result = "cached"
	}
	metrics.Operations.WithLabelValues(operation, result).Inc()
}

func (a *Analyzer) recordLookup(hit bool) {
	if hit {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		return
	}
	metrics.CacheRequests.WithLabelValues("miss").Inc()
}

// Heatmap synthesizes a grid for the group around base. Zero dimensions use
// the configured defaults. Only seeded grids are cached since unseeded ones
// differ on every call.
func (a *Analyzer) Heatmap(ctx context.Context, group common.GroupKey, base response.Conditions, width, height int) (result HeatmapResult, err error) {
	start := a.clock.Now()
	cached := false
	defer func() { a.observe("heatmap", start, cached, err) }()

	if width == 0 {
		width = a.config.Heatmap.Width
	}
	if height == 0 {
		height = a.config.Heatmap.Height
	}

	profile, err := a.catalog.Lookup(group)
	if err != nil {
		return HeatmapResult{}, err
	}

	seeded := a.config.Heatmap.Seed != nil
	key := fmt.Sprintf("%s|%dx%d|%+v", group, width, height, base)
	if seeded {
		if r, ok := a.grids.Get(key); ok {
			a.recordLookup(true)
			cached = true
			return r.clone(), nil
		}
		a.recordLookup(false)
	}

	grid, err := a.synth.BuildHeatmap(ctx, profile, base, width, height)
	if err != nil {
		return HeatmapResult{}, fmt.Errorf("failed to build heatmap for %s: %w", group, err)
	}

	result = HeatmapResult{
		Group:      group,
		Base:       base,
		BaseTerms:  response.Breakdown(profile, base),
		Grid:       grid,
		Stats:      grid.Stats(),
		Seeded:     seeded,
		ComputedAt: a.clock.Now(),
	}
	if seeded {
		a.grids.Set(key, result.clone())
	}

	metrics.HeatmapCells.WithLabelValues(string(group)).Add(float64(width * height))
	metrics.HeatmapBiomass.WithLabelValues(string(group), "min").Set(result.Stats.Min)
	metrics.HeatmapBiomass.WithLabelValues(string(group), "max").Set(result.Stats.Max)
	metrics.HeatmapBiomass.WithLabelValues(string(group), "mean").Set(result.Stats.Mean)

	return result, nil
}

// samples reads the sorted history from the source
func (a *Analyzer) samples(ctx context.Context) ([]series.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.source == nil {
		return nil, fmt.Errorf("no sample source configured")
	}
	samples, err := a.source.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load samples: %w", err)
	}
	if !series.IsSorted(samples) {
		sorted := make([]series.Sample, len(samples))
		copy(sorted, samples)
		series.SortByDate(sorted)
		samples = sorted
	}
	return samples, nil
}

// historyKey identifies a group's history by length and last date
func historyKey(points []series.Point) string {
	if len(points) == 0 {
		return "0"
	}
	return strconv.Itoa(len(points)) + "@" + strconv.FormatFloat(points[len(points)-1].X, 'f', 0, 64)
}

// Forecast projects the group's history monthsAhead months with algorithm.
// An empty algorithm uses the configured default and a negative horizon the
// configured one.
func (a *Analyzer) Forecast(ctx context.Context, group common.GroupKey, algorithm forecast.Algorithm, monthsAhead int) (result ForecastResult, err error) {
	start := a.clock.Now()
	cached := false
	defer func() { a.observe("forecast", start, cached, err) }()

	if !a.catalog.Has(group) {
		return ForecastResult{}, fmt.Errorf("%w: %q", species.ErrUnknownGroup, group)
	}
	if algorithm == "" {
		algorithm = forecast.Algorithm(a.config.Forecast.Algorithm)
	}
	if monthsAhead < 0 {
		monthsAhead = a.config.Forecast.MonthsAhead
	}

	samples, err := a.samples(ctx)
	if err != nil {
		return ForecastResult{}, err
	}
	points := series.ToPoints(samples, group)

	key := fmt.Sprintf("%s|%s|%d|%s", group, algorithm, monthsAhead, historyKey(points))
	if r, ok := a.forecasts.Get(key); ok {
		a.recordLookup(true)
		cached = true
		return r.clone(), nil
	}
	a.recordLookup(false)

	predictions, err := forecast.PredictPoints(points, algorithm, monthsAhead)
	if err != nil {
		return ForecastResult{}, fmt.Errorf("forecast for %s: %w", group, err)
	}

	result = ForecastResult{
		Group:       group,
		Algorithm:   algorithm,
		DisplayName: algorithm.DisplayName(),
		History:     len(points),
		FellBack:    algorithm.FallsBack(len(points)),
		Predictions: predictions,
	}
	if result.FellBack {
		metrics.ForecastFallbacks.WithLabelValues(string(algorithm)).Inc()
	}
	a.forecasts.Set(key, result.clone())

	return result, nil
}

// Backtest scores every algorithm on the group's history
func (a *Analyzer) Backtest(ctx context.Context, group common.GroupKey) (result BacktestResult, err error) {
	start := a.clock.Now()
	cached := false
	defer func() { a.observe("backtest", start, cached, err) }()

	if !a.catalog.Has(group) {
		return BacktestResult{}, fmt.Errorf("%w: %q", species.ErrUnknownGroup, group)
	}

	samples, err := a.samples(ctx)
	if err != nil {
		return BacktestResult{}, err
	}
	points := series.ToPoints(samples, group)

	key := fmt.Sprintf("%s|%s", group, historyKey(points))
	if r, ok := a.backtests.Get(key); ok {
		a.recordLookup(true)
		cached = true
		return r.clone(), nil
	}
	a.recordLookup(false)

	result = BacktestResult{
		Group:   group,
		History: len(points),
		Scores:  forecast.BacktestScores(points),
	}
	if result.Scores == nil {
		result.Scores = []forecast.Score{}
	}
	for _, s := range result.Scores {
		metrics.BacktestAccuracy.WithLabelValues(string(group), string(s.Algorithm)).Set(s.Accuracy)
	}
	a.backtests.Set(key, result.clone())

	return result, nil
}

// PCA reduces the calendar-month means of groups to two components. No
// groups means every functional group.
func (a *Analyzer) PCA(ctx context.Context, groups []common.GroupKey) (result PCAResult, err error) {
	start := a.clock.Now()
	defer func() { a.observe("pca", start, false, err) }()

	if len(groups) == 0 {
		groups = common.Groups()
	}
	for _, g := range groups {
		if !a.catalog.Has(g) {
			return PCAResult{}, fmt.Errorf("%w: %q", species.ErrUnknownGroup, g)
		}
	}

	samples, err := a.samples(ctx)
	if err != nil {
		return PCAResult{}, err
	}

	agg := pca.AggregateMonthly(samples, groups)
	r, err := pca.Run(agg.Matrix)
	if err != nil {
		return PCAResult{}, fmt.Errorf("pca over %d months: %w", len(agg.Months), err)
	}

	for k, v := range r.ExplainedVariance {
		metrics.ExplainedVariance.WithLabelValues(fmt.Sprintf("pc%d", k+1)).Set(v)
	}

	return PCAResult{Groups: groups, Months: agg.Months, Result: r}, nil
}

// Import stores samples in the source, applies retention and drops cached
// results computed from the previous history
func (a *Analyzer) Import(ctx context.Context, samples []series.Sample) (err error) {
	start := a.clock.Now()
	defer func() { a.observe("import", start, false, err) }()

	st, ok := a.source.(store.SampleStore)
	if !ok {
		return ErrReadOnlySource
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := store.StoreAll(st, samples); err != nil {
		return err
	}
	if err := st.Cleanup(a.config.Store.RetentionDays); err != nil {
		return err
	}

	a.forecasts.Clear()
	a.backtests.Clear()

	klog.V(2).InfoS("Imported samples", "count", len(samples))
	return nil
}
