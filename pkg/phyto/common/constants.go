package common

// GroupKey identifies one of the phytoplankton functional groups tracked in Lake Kinneret
type GroupKey string

// Functional group keys shared by the response model, forecasting and PCA
const (
	GroupDiatoms         GroupKey = "diatoms"
	GroupDinoflagellates GroupKey = "dinoflagellates"
	GroupSmallPhyto      GroupKey = "small_phyto"
	GroupNFixers         GroupKey = "n_fixers"
	GroupMicrocystis     GroupKey = "microcystis"
)

// Groups returns the functional groups in their canonical display order
func Groups() []GroupKey {
	return []GroupKey{
		GroupDiatoms,
		GroupDinoflagellates,
		GroupSmallPhyto,
		GroupNFixers,
		GroupMicrocystis,
	}
}

// Units used by the dashboard; the engine never converts between them
const (
	UnitBiomass     = "mmol P/m³"
	UnitTemperature = "°C"
	UnitWindSpeed   = "m/s"
	UnitDepth       = "m"
)

// MonthsPerYear is the period of the seasonal cycle used for month indexing
const MonthsPerYear = 12

// Environment variables recognised by config.LoadFromEnv
const (
	EnvConfigPath      = "PHYTO_CONFIG_PATH"
	EnvHeatmapWidth    = "PHYTO_HEATMAP_WIDTH"
	EnvHeatmapHeight   = "PHYTO_HEATMAP_HEIGHT"
	EnvHeatmapSeed     = "PHYTO_HEATMAP_SEED"
	EnvHeatmapWorkers  = "PHYTO_HEATMAP_WORKERS"
	EnvMonthsAhead     = "PHYTO_FORECAST_MONTHS_AHEAD"
	EnvAlgorithm       = "PHYTO_FORECAST_ALGORITHM"
	EnvCacheTTL        = "PHYTO_CACHE_TTL"
	EnvMaxCacheAge     = "PHYTO_MAX_CACHE_AGE"
	EnvStoreDriver     = "PHYTO_STORE_DRIVER"
	EnvStorePath       = "PHYTO_STORE_PATH"
	EnvRetentionDays   = "PHYTO_STORE_RETENTION_DAYS"
	EnvMetricsEnabled  = "PHYTO_METRICS_ENABLED"
	EnvMetricsTextfile = "PHYTO_METRICS_TEXTFILE"
	EnvLogLevel        = "PHYTO_LOG_LEVEL"
)
