// Package config loads engine settings from a YAML file and environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
)

// LoadFromFile reads a YAML file over the defaults and validates the result
func LoadFromFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv starts from the file named by PHYTO_CONFIG_PATH, or the
// defaults, and applies the PHYTO_* environment overrides
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(common.EnvConfigPath))
}

// Load starts from the file at path, or the defaults when path is empty, and
// applies the PHYTO_* environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fromFile, err := readFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fromFile
	}

	cfg.Heatmap.Width = getIntOrDefault(common.EnvHeatmapWidth, cfg.Heatmap.Width)
	cfg.Heatmap.Height = getIntOrDefault(common.EnvHeatmapHeight, cfg.Heatmap.Height)
	cfg.Heatmap.Workers = getIntOrDefault(common.EnvHeatmapWorkers, cfg.Heatmap.Workers)
	cfg.Heatmap.Seed = getInt64PtrOrDefault(common.EnvHeatmapSeed, cfg.Heatmap.Seed)

	cfg.Forecast.MonthsAhead = getIntOrDefault(common.EnvMonthsAhead, cfg.Forecast.MonthsAhead)
	cfg.Forecast.Algorithm = getEnvOrDefault(common.EnvAlgorithm, cfg.Forecast.Algorithm)
	cfg.Forecast.CacheTTL = getDurationOrDefault(common.EnvCacheTTL, cfg.Forecast.CacheTTL)
	cfg.Forecast.MaxCacheAge = getDurationOrDefault(common.EnvMaxCacheAge, cfg.Forecast.MaxCacheAge)

	cfg.Store.Driver = getEnvOrDefault(common.EnvStoreDriver, cfg.Store.Driver)
	cfg.Store.Path = getEnvOrDefault(common.EnvStorePath, cfg.Store.Path)
	cfg.Store.RetentionDays = getIntOrDefault(common.EnvRetentionDays, cfg.Store.RetentionDays)

	cfg.Observability.MetricsEnabled = getBoolOrDefault(common.EnvMetricsEnabled, cfg.Observability.MetricsEnabled)
	cfg.Observability.MetricsTextfile = getEnvOrDefault(common.EnvMetricsTextfile, cfg.Observability.MetricsTextfile)
	cfg.Observability.LogLevel = getEnvOrDefault(common.EnvLogLevel, cfg.Observability.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	klog.V(2).InfoS("Loaded configuration",
		"heatmap", fmt.Sprintf("%dx%d", cfg.Heatmap.Width, cfg.Heatmap.Height),
		"seeded", cfg.Heatmap.Seed != nil,
		"algorithm", cfg.Forecast.Algorithm,
		"monthsAhead", cfg.Forecast.MonthsAhead,
		"storeDriver", cfg.Store.Driver,
		"speciesOverrides", len(cfg.Species))

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if strValue := os.Getenv(key); strValue != "" {
		if value, err := strconv.Atoi(strValue); err == nil {
			return value
		}
		klog.V(2).InfoS("Invalid integer value, using default",
			"key", key,
			"value", strValue,
			"default", defaultValue)
	}
	return defaultValue
}

func getInt64PtrOrDefault(key string, defaultValue *int64) *int64 {
	if strValue := os.Getenv(key); strValue != "" {
		if value, err := strconv.ParseInt(strValue, 10, 64); err == nil {
			return ptr.To(value)
		}
		klog.V(2).InfoS("Invalid integer value, using default",
			"key", key,
			"value", strValue)
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if strValue := os.Getenv(key); strValue != "" {
		value, err := strconv.ParseBool(strValue)
		if err == nil {
			return value
		}
		klog.V(2).InfoS("Invalid boolean value, using default",
			"key", key,
			"value", strValue,
			"default", defaultValue)
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if strValue := os.Getenv(key); strValue != "" {
		if value, err := time.ParseDuration(strValue); err == nil {
			return value
		}
		klog.V(2).InfoS("Invalid duration value, using default",
			"key", key,
			"value", strValue,
			"default", defaultValue)
	}
	return defaultValue
}
