package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/analyzer"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/forecast"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/response"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/store"
)

// commandEnv is what a parsed command runs against
type commandEnv struct {
	analyzer    *analyzer.Analyzer
	out         io.Writer
	samplesPath string
}

type runFunc func(ctx context.Context, env *commandEnv) error

type command struct {
	// writes marks commands that must run against the store
	writes bool
	// standalone marks commands that neither read nor write samples
	standalone bool
	// flags registers the command's flags and returns its body
	flags func(fs *flag.FlagSet) runFunc
}

var commands = map[string]command{
	"heatmap":  {standalone: true, flags: heatmapCommand},
	"forecast": {flags: forecastCommand},
	"backtest": {flags: backtestCommand},
	"pca":      {flags: pcaCommand},
	"import":   {writes: true, flags: importCommand},
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

func heatmapCommand(fs *flag.FlagSet) runFunc {
	var (
		group          string
		width, height  int
		conditionsPath string
		base           response.Conditions
	)
	fs.StringVar(&group, "group", string(common.GroupDiatoms), "Functional group key")
	fs.IntVar(&width, "width", 0, "Grid width (0 uses the configured width)")
	fs.IntVar(&height, "height", 0, "Grid height (0 uses the configured height)")
	fs.StringVar(&conditionsPath, "conditions", "", "YAML file of base conditions; overrides the condition flags")
	fs.Float64Var(&base.Temperature, "temperature", 18, "Water temperature in "+common.UnitTemperature)
	fs.Float64Var(&base.WindSpeed, "wind-speed", 3, "Wind speed in "+common.UnitWindSpeed)
	fs.Float64Var(&base.WindDirection, "wind-direction", 270, "Wind direction in degrees")
	fs.Float64Var(&base.Light, "light", 0.8, "Light as a fraction of full sun")
	fs.Float64Var(&base.Phosphorus, "phosphorus", 0.5, "Phosphorus concentration")
	fs.Float64Var(&base.Nitrogen, "nitrogen", 1.0, "Nitrogen concentration")
	fs.Float64Var(&base.Silicon, "silicon", 2.0, "Silicon concentration")
	fs.Float64Var(&base.Depth, "depth", 10, "Mixed layer depth in "+common.UnitDepth)
	fs.IntVar(&base.Month, "month", 4, "Month (1-12)")

	return func(ctx context.Context, env *commandEnv) error {
		if conditionsPath != "" {
			data, err := os.ReadFile(conditionsPath)
			if err != nil {
				return fmt.Errorf("failed to read conditions: %w", err)
			}
			if err := yaml.Unmarshal(data, &base); err != nil {
				return fmt.Errorf("failed to parse conditions %s: %w", conditionsPath, err)
			}
		}

		result, err := env.analyzer.Heatmap(ctx, common.GroupKey(group), base, width, height)
		if err != nil {
			return err
		}
		return writeJSON(env.out, result)
	}
}

func forecastCommand(fs *flag.FlagSet) runFunc {
	var (
		group     string
		algorithm string
		months    int
	)
	fs.StringVar(&group, "group", string(common.GroupDiatoms), "Functional group key")
	fs.StringVar(&algorithm, "algorithm", "", "Forecast algorithm, or 'all' (empty uses the configured algorithm)")
	fs.IntVar(&months, "months", -1, "Months ahead (negative uses the configured horizon)")

	return func(ctx context.Context, env *commandEnv) error {
		if algorithm != "all" {
			if algorithm != "" {
				if _, err := forecast.ParseAlgorithm(algorithm); err != nil {
					return err
				}
			}
			result, err := env.analyzer.Forecast(ctx, common.GroupKey(group), forecast.Algorithm(algorithm), months)
			if err != nil {
				return err
			}
			return writeJSON(env.out, result)
		}

		results := make([]analyzer.ForecastResult, 0, len(forecast.Algorithms()))
		for _, a := range forecast.Algorithms() {
			result, err := env.analyzer.Forecast(ctx, common.GroupKey(group), a, months)
			if err != nil {
				return err
			}
			results = append(results, result)
		}
		return writeJSON(env.out, results)
	}
}

func backtestCommand(fs *flag.FlagSet) runFunc {
	var group string
	fs.StringVar(&group, "group", string(common.GroupDiatoms), "Functional group key")

	return func(ctx context.Context, env *commandEnv) error {
		result, err := env.analyzer.Backtest(ctx, common.GroupKey(group))
		if err != nil {
			return err
		}
		if len(result.Scores) == 0 {
			klog.InfoS("History too short to backtest",
				"group", group,
				"samples", result.History,
				"required", forecast.MinBacktestSamples)
		}
		return writeJSON(env.out, result)
	}
}

func pcaCommand(fs *flag.FlagSet) runFunc {
	var groups stringSlice
	fs.Var(&groups, "group", "Functional group to include (can be specified multiple times, default all)")

	return func(ctx context.Context, env *commandEnv) error {
		keys := make([]common.GroupKey, 0, len(groups))
		for _, g := range groups {
			keys = append(keys, common.GroupKey(g))
		}
		result, err := env.analyzer.PCA(ctx, keys)
		if err != nil {
			return err
		}
		return writeJSON(env.out, result)
	}
}

func importCommand(fs *flag.FlagSet) runFunc {
	return func(ctx context.Context, env *commandEnv) error {
		if env.samplesPath == "" {
			return fmt.Errorf("import requires -samples")
		}
		samples, err := store.ReadSamplesFile(env.samplesPath)
		if err != nil {
			return err
		}
		if err := env.analyzer.Import(ctx, samples); err != nil {
			return err
		}
		return writeJSON(env.out, map[string]int{"imported": len(samples)})
	}
}

// stringSlice implements flag.Value for repeated string flags
type stringSlice []string

func (s *stringSlice) String() string {
	return fmt.Sprintf("%v", *s)
}

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}
