// Package metrics exposes the analytics engine's Prometheus collectors. The
// CLI is short-lived, so values are flushed to a node-exporter textfile
// rather than served.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/klog/v2"
)

const (
	namespace         = "kinneret_phyto"
	heatmapSubsystem  = "heatmap"
	forecastSubsystem = "forecast"
	pcaSubsystem      = "pca"
	cacheSubsystem    = "cache"
)

// Registry holds every collector of this package
var Registry = prometheus.NewRegistry()

var (
	// HeatmapCells counts evaluated grid cells
	HeatmapCells = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: heatmapSubsystem,
			Name:      "cells_total",
			Help:      "Number of grid cells evaluated by the response model",
		},
		[]string{"group"},
	)

	// HeatmapBiomass records the statistics of the latest grid
	HeatmapBiomass = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: heatmapSubsystem,
			Name:      "biomass",
			Help:      "Biomass statistics of the latest heatmap by group",
		},
		[]string{"group", "stat"}, // stat: "min", "max", "mean"
	)

	// OperationDuration measures the latency of engine operations
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of analytics operations",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"operation"}, // "heatmap", "forecast", "backtest", "pca", "import"
	)

	// ForecastFallbacks counts forecasts that fell back to the linear trend
	ForecastFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: forecastSubsystem,
			Name:      "fallback_total",
			Help:      "Number of forecasts that fell back to linear regression for short histories",
		},
		[]string{"algorithm"},
	)

	// BacktestAccuracy is the latest backtest accuracy percentage
	BacktestAccuracy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: forecastSubsystem,
			Name:      "backtest_accuracy_percent",
			Help:      "Backtest accuracy (0-100) of each algorithm by group",
		},
		[]string{"group", "algorithm"},
	)

	// ExplainedVariance is the explained variance of the latest PCA
	ExplainedVariance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: pcaSubsystem,
			Name:      "explained_variance_ratio",
			Help:      "Share of total variance explained by each retained component",
		},
		[]string{"component"},
	)

	// CacheRequests counts result cache lookups
	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: cacheSubsystem,
			Name:      "requests_total",
			Help:      "Result cache lookups by outcome",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// Operations counts analytics operations by outcome
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Number of analytics operations by result",
		},
		[]string{"operation", "result"}, // result: "success", "error", "cached"
	)
)

func init() {
	Registry.MustRegister(
		HeatmapCells,
		HeatmapBiomass,
		OperationDuration,
		ForecastFallbacks,
		BacktestAccuracy,
		ExplainedVariance,
		CacheRequests,
		Operations,
	)
}

// WriteTextfile writes the current values in the node-exporter textfile format
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	klog.V(2).InfoS("Wrote metrics textfile", "path", path)
	return nil
}
