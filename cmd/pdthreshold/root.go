package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/pdthreshold/internal/config"
)

type globalOptions struct {
	configPath string
	verbose    bool
	logJSON    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Portfolio PD prior/posterior threshold estimator",
		Version: version,
		Long: `pdthreshold fits a Beta prior to loan-level PD forecasts by the method of
moments, updates it with the expected default count, and reports the posterior
1%/99% forecast thresholds for CECL monitoring.

Examples:
  pdthreshold run
  pdthreshold run --size 10000 --seed 7 --levels 0.025,0.975 --out out/pd.png
  pdthreshold run --config pdthreshold.yaml --format json --no-chart
  pdthreshold config --config pdthreshold.yaml`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging with stage timings")
	rootCmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "Emit JSON log lines even on a terminal")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newConfigCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version)
			},
		},
	)

	return rootCmd
}

func newConfigCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
