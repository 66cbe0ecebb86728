package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meenmo/mcurve/cmd/mcurve/internal/job"
	"github.com/meenmo/mcurve/scenario"
	"github.com/meenmo/mcurve/store"
)

func newValueCmd() *cobra.Command {
	var (
		path, dbPath, runID string
		asJSON              bool
	)
	cmd := &cobra.Command{
		Use:   "value",
		Short: "Value a run's portfolio under every scenario",
		Long: `Value the portfolio of a run file under the base curve and each cooked
scenario. Without --run the scenarios are cooked first; with --run they are
read from the store.

Examples:
  mcurve value -f run.yaml
  mcurve value -f run.yaml --run 01J... --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRun(cmd, path)
			if err != nil {
				return err
			}

			var (
				j   *job.Job
				set scenario.Set
			)
			if runID == "" {
				if j, set, err = cook(r); err != nil {
					return err
				}
			} else {
				if j, err = job.Build(r); err != nil {
					return err
				}
				s, err := store.Open(dbOrDefault(dbPath, r))
				if err != nil {
					return fmt.Errorf("open db: %w", err)
				}
				defer s.Close()
				run, stored, err := s.LoadSet(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if run.Label != j.Label {
					return fmt.Errorf("run %s holds %s, run file calibrates %s", runID, run.Label, j.Label)
				}
				set = stored
			}

			results, err := j.Value(set)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "TRADE\tVARIANT\tPV\tDELTA\t")
			for _, res := range results {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t\n", res.Trade, res.Variant, res.PV, res.Delta)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "path to run file (required)")
	cmd.Flags().StringVar(&runID, "run", "", "stored run ID to value instead of cooking")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite path (default: store.path of the run file)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "write JSON instead of a table")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
