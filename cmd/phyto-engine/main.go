package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/analyzer"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/clock"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/config"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/metrics"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/store"
)

const usage = `Usage: phyto-engine [flags] <command> [command flags]

Commands:
  heatmap    synthesize a biomass grid for one functional group
  forecast   project a group's history forward
  backtest   score every forecast algorithm on a group's history
  pca        two-component PCA of calendar-month group means
  import     store samples from a JSON file

Run 'phyto-engine <command> -h' for command flags.
`

func main() {
	var configPath string

	flag.StringVar(&configPath, "config", "", "Path to YAML config file (or set PHYTO_CONFIG_PATH)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}

	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	if configPath == "" {
		configPath = os.Getenv(common.EnvConfigPath)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		klog.ErrorS(err, "Failed to load configuration")
		os.Exit(1)
	}
	applyLogLevel(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, flag.Args(), os.Stdout); err != nil {
		klog.ErrorS(err, "Command failed")
		klog.Flush()
		os.Exit(1)
	}
}

// applyLogLevel raises klog verbosity to the configured level unless -v was
// given explicitly
func applyLogLevel(cfg *config.Config) {
	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "v" {
			explicit = true
		}
	})
	if v := cfg.Observability.Verbosity(); !explicit && v > 0 {
		if err := flag.Set("v", strconv.Itoa(v)); err != nil {
			klog.V(2).InfoS("Failed to apply log level", "level", cfg.Observability.LogLevel, "err", err)
		}
	}
}

// run dispatches args[0] to its command and writes the result to out
func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n\n%s", usage)
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	samplesPath := fs.String("samples", "", "JSON file of samples to analyze instead of the configured store")
	runCmd := cmd.flags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	var source analyzer.SampleSource
	if !cmd.standalone {
		s, closeSource, err := openSource(cfg, *samplesPath, cmd.writes)
		if err != nil {
			return err
		}
		defer closeSource()
		source = s
	}

	a, err := analyzer.New(cfg, source, clock.RealClock{})
	if err != nil {
		return err
	}
	defer a.Close()

	env := &commandEnv{analyzer: a, out: out, samplesPath: *samplesPath}
	if err := runCmd(ctx, env); err != nil {
		return err
	}

	if cfg.Observability.MetricsEnabled {
		if err := metrics.WriteTextfile(cfg.Observability.MetricsTextfile); err != nil {
			return err
		}
	}
	return nil
}

// openSource returns the JSON samples file when given, else the configured
// store. Commands that write always use the store.
func openSource(cfg *config.Config, samplesPath string, writes bool) (analyzer.SampleSource, func(), error) {
	if samplesPath != "" && !writes {
		samples, err := store.ReadSamplesFile(samplesPath)
		if err != nil {
			return nil, nil, err
		}
		return analyzer.StaticSamples(samples), func() {}, nil
	}

	st, err := store.Open(cfg.Store.Driver, cfg.Store.Path, clock.RealClock{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sample store: %w", err)
	}
	return st, func() {
		if err := st.Close(); err != nil {
			klog.ErrorS(err, "Failed to close sample store")
		}
	}, nil
}
