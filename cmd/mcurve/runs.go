package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/store"
	"github.com/meenmo/mcurve/utils"
)

func newRunsCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Query stored runs",
		Long: `Query the scenario sets stored by cook.

Examples:
  mcurve runs list --label FUNDING::EUR
  mcurve runs show <run-id> --text`,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "mcurve.db", "SQLite path")

	var labelText string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var label market.Label
			if labelText != "" {
				var err error
				if label, err = market.ParseLabel(labelText); err != nil {
					return err
				}
			}
			s, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), label)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tLABEL\tAS OF\tMASK\tVARIANTS\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					r.ID, r.Label, r.AsOf.Format(utils.DateLayout), r.Mask, r.Variants, r.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVar(&labelText, "label", "", "only runs of this curve, e.g. FUNDING::EUR")

	var asText bool
	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a stored run's variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer s.Close()

			run, set, err := s.LoadSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asText {
				text, err := set.MarshalText()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(text))
				return nil
			}
			fmt.Fprintf(out, "Run %s: %s as of %s, mask %s, bump %g\n",
				run.ID, run.Label, run.AsOf.Format(utils.DateLayout), run.Mask, run.Bump)
			for _, e := range set.Entries() {
				fmt.Fprintf(out, "  %-20s %s\n", e.Key, e.Curve.Label())
			}
			return nil
		},
	}
	showCmd.Flags().BoolVar(&asText, "text", false, "print the set in its delimited text form")

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}
