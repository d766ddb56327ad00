package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sawpanic/pdthreshold/internal/config"
	"github.com/sawpanic/pdthreshold/internal/domain"
	plog "github.com/sawpanic/pdthreshold/internal/log"
	"github.com/sawpanic/pdthreshold/internal/metrics"
	"github.com/sawpanic/pdthreshold/internal/pipeline"
)

type runOptions struct {
	size        int
	seed        uint64
	alpha       float64
	beta        float64
	levels      domain.Levels
	observed    int
	out         string
	noChart     bool
	format      string
	metricsFile string
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{levels: domain.Levels{Low: 0.01, High: 0.99}}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Estimate prior and posterior PD and render the threshold chart",
		Long: `Generates a synthetic loan-level PD sample, fits the Beta prior, applies the
pseudo-likelihood update and writes the prior vs posterior chart.

Flags override values from --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThresholds(cmd, global, opts)
		},
	}

	f := runCmd.Flags()
	f.IntVar(&opts.size, "size", 6000, "Number of loans N in the generated sample")
	f.Uint64Var(&opts.seed, "seed", 321, "Random seed for the PD sample")
	f.Float64Var(&opts.alpha, "alpha", 1.25, "Generating Beta alpha")
	f.Float64Var(&opts.beta, "beta", 120.0, "Generating Beta beta")
	f.Var(&config.LevelsFlag{Levels: &opts.levels}, "levels", "Posterior quantile levels as low,high")
	f.IntVar(&opts.observed, "observed-defaults", 0, "Actual default count replacing the expected count N*mean")
	f.StringVarP(&opts.out, "out", "o", config.DefaultChartPath, "Chart output path")
	f.BoolVar(&opts.noChart, "no-chart", false, "Skip rendering the chart")
	f.StringVar(&opts.format, "format", config.FormatText, "Report format (text|json)")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "Write prometheus textfile metrics to this path")

	return runCmd
}

func runThresholds(cmd *cobra.Command, global *globalOptions, opts *runOptions) error {
	runID := uuid.NewString()
	logger := plog.Setup(plog.Options{Out: os.Stderr, Verbose: global.verbose, JSON: global.logJSON, RunID: runID})

	cfg, err := config.LoadConfig(global.configPath)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg, opts)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info().
		Int("n", cfg.Sample.Size).
		Uint64("seed", cfg.Sample.Seed).
		Str("levels", cfg.Thresholds.Label()).
		Msg("Starting PD threshold run")

	m := metrics.NewRunMetrics()
	runner := pipeline.NewRunner(cfg, m, logger)
	runner.RunID = runID

	_, err = runner.Run(pipeline.DefaultSinks(cfg, m, logger, cmd.OutOrStdout())...)
	return err
}

// applyRunFlags copies explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, opts *runOptions) {
	f := cmd.Flags()
	if f.Changed("size") {
		cfg.Sample.Size = opts.size
	}
	if f.Changed("seed") {
		cfg.Sample.Seed = opts.seed
	}
	if f.Changed("alpha") {
		cfg.Sample.Alpha = opts.alpha
	}
	if f.Changed("beta") {
		cfg.Sample.Beta = opts.beta
	}
	if f.Changed("levels") {
		cfg.Thresholds = opts.levels
	}
	if f.Changed("observed-defaults") {
		observed := opts.observed
		cfg.Update.ObservedDefaults = &observed
	}
	if f.Changed("out") {
		cfg.Chart.Path = opts.out
	}
	if f.Changed("no-chart") {
		cfg.Chart.Disabled = opts.noChart
	}
	if f.Changed("format") {
		cfg.Report.Format = opts.format
	}
	if f.Changed("metrics-file") {
		cfg.Metrics.Textfile = opts.metricsFile
	}
}
