// Package cmd - allocate command
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"microcredit/core/allocation"
	"microcredit/core/rules"
	"microcredit/core/types"
	"microcredit/core/ui"
	"microcredit/internal/config"
)

var (
	category   string
	allocJSON  bool
	allocRules string
)

// allocateCmd computes the credit line of one profile code
var allocateCmd = &cobra.Command{
	Use:   "allocate <profile-code>",
	Short: "Compute the credit line of a profile code",
	Long: `Compute the weighted score and loan amounts of a five digit profile code
under the configured allocation rules.

Examples:
  microcredit allocate 55555
  microcredit allocate 32415 --category Business --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAllocate,
}

func init() {
	allocateCmd.Flags().StringVarP(&category, "category", "c", string(types.CustomerIndividual), "customer category (Individual, Business)")
	allocateCmd.Flags().BoolVar(&allocJSON, "json", false, "print JSON")
	allocateCmd.Flags().StringVar(&allocRules, "rules", "", "business rules file (HCL)")
}

func runAllocate(cmd *cobra.Command, args []string) error {
	path := allocRules
	if path == "" {
		path = config.Get().RulesFile
	}
	r, err := rules.Load(path)
	if err != nil {
		return err
	}
	a, err := allocation.New(r.Allocation)
	if err != nil {
		return err
	}
	line, err := a.Allocate(args[0], types.CustomerCategory(category))
	if err != nil {
		return err
	}

	if allocJSON {
		return writeJSON(cmd.OutOrStdout(), line)
	}

	w := ui.NewWriter(cmd.OutOrStdout(), noColor)
	w.Println("Profile code:    %s (%s)", args[0], category)
	w.Println("Weighted score:  %d", line.WeightedScore)
	w.Println("Normalized:      %s", line.Normalized.StringFixed(4))
	if len(line.Amounts) == 0 {
		w.Warning("no loan products for category %q", category)
		return nil
	}
	table := w.NewTable("LOAN", "AMOUNT")
	for _, loan := range types.LoanTypes {
		if amount, ok := line.Amounts[loan]; ok {
			table.AddRow(string(loan), amount.StringFixed(allocation.AmountPlaces))
		}
	}
	table.Render()
	return nil
}

// validateCmd checks identity uniqueness of a resolved table
var validateCmd = &cobra.Command{
	Use:   "validate <table.csv>",
	Short: "Check that a resolved table holds one row per identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd, args[0])
	},
}

// rulesCmd prints the effective business rules
var rulesCmd = &cobra.Command{
	Use:   "rules [file]",
	Short: "Print the effective business rules as HCL",
	Long: `Print the business rules a run would use. Without a file the configured
rules file is used, or the built-in defaults when none is configured.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.Get().RulesFile
		if len(args) > 0 {
			path = args[0]
		}
		r, err := rules.Load(path)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), string(r.Render()))
		return err
	},
}
