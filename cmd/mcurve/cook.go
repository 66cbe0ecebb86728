package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meenmo/mcurve/cmd/mcurve/internal/job"
	"github.com/meenmo/mcurve/config"
	"github.com/meenmo/mcurve/logging"
	"github.com/meenmo/mcurve/scenario"
	"github.com/meenmo/mcurve/store"
)

func newCookCmd() *cobra.Command {
	var path, dbPath string
	cmd := &cobra.Command{
		Use:   "cook",
		Short: "Calibrate a run's curve and scenarios and store them",
		Long: `Calibrate the base curve of a run file, cook every scenario in its mask
and its custom scenarios, and store the set in SQLite under a new run ID.

Failed bump scenarios are reported and skipped; a failed base calibration
stores nothing.

Example:
  mcurve cook -f run.yaml --db curves.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRun(cmd, path)
			if err != nil {
				return err
			}
			j, set, err := cook(r)
			if err != nil {
				return err
			}

			s, err := store.Open(dbOrDefault(dbPath, r))
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer s.Close()

			id, err := s.SaveSet(cmd.Context(), store.Run{Label: j.Label, AsOf: j.AsOf, Mask: j.Mask, Bump: r.Scenario.Bump}, set)
			if err != nil {
				return fmt.Errorf("store run: %w", err)
			}
			ctx := logging.WithRunID(cmd.Context(), id)
			slog.InfoContext(ctx, "run stored", "label", j.Label.String(), "variants", len(set.Entries()))

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, id)
			for _, e := range set.Entries() {
				fmt.Fprintf(out, "  %s\n", e.Key)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "path to run file (required)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite path (default: store.path of the run file)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// cook builds and cooks r. Bump failures are logged; only a base failure is
// returned.
func cook(r *config.Run) (*job.Job, scenario.Set, error) {
	j, err := job.Build(r)
	if err != nil {
		return nil, scenario.Set{}, err
	}
	set, err := j.Cook()
	if errors.Is(err, scenario.ErrBaseCalibrationFailed) {
		return nil, scenario.Set{}, err
	}
	if err != nil {
		slog.Warn("scenarios skipped", "label", j.Label.String(), "error", err)
	}
	return j, set, nil
}

func dbOrDefault(flag string, r *config.Run) string {
	if flag != "" {
		return flag
	}
	return r.Store.Path
}
