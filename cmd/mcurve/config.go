package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meenmo/mcurve/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate run files",
		Long: `Manage run files.

Subcommands:
  init     - Write a default run file
  validate - Check that a run file loads

Examples:
  mcurve config init -o run.yaml
  mcurve config validate -f run.yaml`,
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default run file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DefaultRun().Save(output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created default run file: %s\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "run.yaml", "output run file path")

	var path string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a run file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run file valid: %s\n", path)
			fmt.Fprintf(out, "  Curve: %s %s (%d quotes)\n", r.Curve.Kind, r.Curve.Currency, len(r.Curve.Quotes))
			fmt.Fprintf(out, "  Scenarios: %s\n", r.Scenario.Mask)
			fmt.Fprintf(out, "  Store: %s\n", r.Store.Path)
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&path, "file", "f", "", "path to run file (required)")
	_ = validateCmd.MarkFlagRequired("file")

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
