// Package cmd - validate and runs commands
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"microcredit/adapters/storage"
	"microcredit/core/identity"
	"microcredit/core/ingest"
	"microcredit/core/pipeline"
	"microcredit/core/types"
	"microcredit/core/ui"
	"microcredit/internal/config"
)

func runValidate(cmd *cobra.Command, path string) error {
	raw, err := storage.ReadCSV(path)
	if err != nil {
		return err
	}
	t, err := ingest.Decode(raw)
	if err != nil {
		return err
	}
	if missing := t.MissingColumns(types.ColIDType, types.ColIDNumber); len(missing) > 0 {
		return fmt.Errorf("%s: missing identity columns %v", path, missing)
	}

	report := identity.Validate(t)
	w := ui.NewWriter(cmd.OutOrStdout(), noColor)
	if report.OK() {
		w.Success("%d rows, %d identities, no duplicates", t.Len(), report.Identities)
		return nil
	}
	for _, v := range report.Violations {
		w.Warning("identity %s has %d rows: %v", v.Identity, v.Rows, v.SIMs)
	}
	return fmt.Errorf("%d identities have more than one row", len(report.Violations))
}

var runsLimit int

// runsCmd inspects the run history
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect past pipeline runs",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(config.Get())
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(cmd.Context(), &storage.ListFilter{Limit: runsLimit})
		if err != nil {
			return err
		}
		w := ui.NewWriter(cmd.OutOrStdout(), noColor)
		if len(runs) == 0 {
			w.Info("no runs recorded in %s", config.Get().History.Directory)
			return nil
		}
		table := w.NewTable("ID", "STARTED", "PERIOD", "STATUS", "FINAL ROWS", "DURATION")
		for _, r := range runs {
			table.AddRow(
				r.ID,
				r.StartedAt.Local().Format(time.DateTime),
				r.Period,
				string(r.Status),
				fmt.Sprint(r.Stages[pipeline.StageBonusMalus.String()]),
				r.Duration().Round(time.Millisecond).String(),
			)
		}
		table.Render()
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the record of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(config.Get())
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), run)
	},
}

var runsLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the record of the most recent run",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(config.Get())
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.GetLatest(cmd.Context())
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), run)
	},
}

func init() {
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum runs to list")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsLatestCmd)
}
