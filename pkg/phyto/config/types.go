package config

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/forecast"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/species"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/store"
)

// Config holds all configuration for the analytics engine
type Config struct {
	Heatmap       HeatmapConfig                       `yaml:"heatmap"`
	Forecast      ForecastConfig                      `yaml:"forecast"`
	Store         StoreConfig                         `yaml:"store"`
	Observability ObservabilityConfig                 `yaml:"observability"`
	Species       map[common.GroupKey]species.Profile `yaml:"species"` // replaces the built-in profile per group
}

// HeatmapConfig holds spatial synthesis settings
type HeatmapConfig struct {
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Seed    *int64 `yaml:"seed"`    // nil draws fresh jitter on every call
	Workers int    `yaml:"workers"` // 0 uses GOMAXPROCS
}

// ForecastConfig holds forecasting defaults
type ForecastConfig struct {
	MonthsAhead int           `yaml:"monthsAhead"`
	Algorithm   string        `yaml:"algorithm"`
	CacheTTL    time.Duration `yaml:"cacheTTL"`
	MaxCacheAge time.Duration `yaml:"maxCacheAge"`
}

// StoreConfig selects where historical samples are persisted
type StoreConfig struct {
	Driver        string `yaml:"driver"` // "sqlite" or "file"
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retentionDays"` // 0 keeps everything
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	MetricsEnabled  bool   `yaml:"metricsEnabled"`
	MetricsTextfile string `yaml:"metricsTextfile"`
	LogLevel        string `yaml:"logLevel"`
}

var logLevels = map[string]int{
	"error": 0,
	"warn":  0,
	"info":  0,
	"debug": 3,
	"trace": 4,
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Heatmap: HeatmapConfig{
			Width:  40,
			Height: 30,
		},
		Forecast: ForecastConfig{
			MonthsAhead: 12,
			Algorithm:   string(forecast.Seasonal),
			CacheTTL:    5 * time.Minute,
			MaxCacheAge: time.Hour,
		},
		Store: StoreConfig{
			Driver: store.DriverSQLite,
			Path:   "data/phyto.db",
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
		},
	}
}

// Verbosity maps the log level onto a klog verbosity
func (o ObservabilityConfig) Verbosity() int {
	return logLevels[o.LogLevel]
}

// Catalog returns the default species catalog with the configured overrides
func (c *Config) Catalog() (*species.Catalog, error) {
	catalog := species.DefaultCatalog()
	for _, key := range sets.List(sets.KeySet(c.Species)) {
		next, err := catalog.With(key, c.Species[key])
		if err != nil {
			return nil, err
		}
		catalog = next
	}
	return catalog, nil
}

// Validate performs validation of the configuration and reports every problem
func (c *Config) Validate() error {
	var errs []error

	if c.Heatmap.Width <= 0 || c.Heatmap.Height <= 0 {
		errs = append(errs, fmt.Errorf("heatmap dimensions must be positive, got %dx%d", c.Heatmap.Width, c.Heatmap.Height))
	}
	if c.Heatmap.Workers < 0 {
		errs = append(errs, fmt.Errorf("heatmap workers must be non-negative, got %d", c.Heatmap.Workers))
	}

	if c.Forecast.MonthsAhead < 0 {
		errs = append(errs, fmt.Errorf("forecast monthsAhead must be non-negative, got %d", c.Forecast.MonthsAhead))
	}
	if _, err := forecast.ParseAlgorithm(c.Forecast.Algorithm); err != nil {
		errs = append(errs, err)
	}
	if c.Forecast.CacheTTL < 0 || c.Forecast.MaxCacheAge < 0 {
		errs = append(errs, fmt.Errorf("cache durations must be non-negative"))
	}

	if !sets.New(store.DriverSQLite, store.DriverFile).Has(c.Store.Driver) {
		errs = append(errs, fmt.Errorf("unsupported store driver %q", c.Store.Driver))
	}
	if c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store path is required"))
	}
	if c.Store.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("store retentionDays must be non-negative, got %d", c.Store.RetentionDays))
	}

	if _, ok := logLevels[c.Observability.LogLevel]; !ok {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Observability.LogLevel))
	}
	if c.Observability.MetricsEnabled && c.Observability.MetricsTextfile == "" {
		errs = append(errs, fmt.Errorf("metricsTextfile is required when metrics are enabled"))
	}

	if _, err := c.Catalog(); err != nil {
		errs = append(errs, err)
	}
	known := sets.New(common.Groups()...)
	for _, k := range sets.List(sets.KeySet(c.Species)) {
		if !known.Has(k) {
			errs = append(errs, fmt.Errorf("%w: %q", species.ErrUnknownGroup, k))
		}
	}

	return utilerrors.NewAggregate(errs)
}
