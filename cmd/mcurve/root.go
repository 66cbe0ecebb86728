package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meenmo/mcurve/config"
	"github.com/meenmo/mcurve/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mcurve",
		Short: "Multi-curve calibration and scenario cooking",
		Long: `mcurve calibrates funding, forward and credit curves from instrument
quotes, cooks their bump scenarios and values a swap portfolio under each one.

A run file (YAML) describes the curve, its quotes, upstream market data, the
scenario mask and the portfolio. Cooked scenario sets are stored in SQLite.

Examples:
  mcurve config init -o run.yaml
  mcurve cook -f run.yaml
  mcurve value -f run.yaml
  mcurve runs list`,
		SilenceUsage: true,
	}
	root.AddCommand(newCookCmd(), newValueCmd(), newConfigCmd(), newRunsCmd())
	return root
}

// loadRun reads and validates a run file, then installs its solver settings
// and logger.
func loadRun(cmd *cobra.Command, path string) (*config.Run, error) {
	r, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	config.SetConfig(r.Solver)
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), r.Logging))
	return r, nil
}
