// Package cmd - run command
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	adapter "microcredit/adapters/cli"
	"microcredit/adapters/storage"
	"microcredit/core/output"
	"microcredit/core/ui"
	"microcredit/internal/config"
	"microcredit/internal/logging"
)

var (
	usagePath    string
	kycPath      string
	ledgerPath   string
	rulesFile    string
	period       string
	reference    string
	outputFormat string
	outputDir    string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the eligibility pipeline over a set of extracts",
	Long: `Run every pipeline stage over the usage, KYC and ledger extracts and
write the stage tables into a fresh directory under the output directory.

Without --ledger every subscriber is labelled Uncertain and keeps its
allocated amounts.

Examples:
  microcredit run --usage data/raw/usage.csv --kyc data/raw/kyc.csv --ledger data/raw/ledger.csv
  microcredit run --usage u.csv --kyc k.csv --period 2024-11 --format markdown`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&usagePath, "usage", "", "usage extract (CSV)")
	runCmd.Flags().StringVar(&kycPath, "kyc", "", "KYC extract (CSV)")
	runCmd.Flags().StringVar(&ledgerPath, "ledger", "", "mobile-money ledger extract (CSV)")
	runCmd.Flags().StringVar(&rulesFile, "rules", "", "business rules file (HCL)")
	runCmd.Flags().StringVar(&period, "period", "", "reporting period YYYY-MM (default: month before --as-of)")
	runCmd.Flags().StringVar(&reference, "as-of", "", "reference date YYYY-MM-DD (default: today)")
	runCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "summary format (cli, json, markdown)")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	runCmd.MarkFlagRequired("usage")
	runCmd.MarkFlagRequired("kyc")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := *config.Get()
	if outputDir != "" {
		cfg.Output.Directory = outputDir
	}
	format := outputFormat
	if format == "" {
		format = cfg.Output.SummaryFormat
	}
	formatter, err := output.Get(format, noColor)
	if err != nil {
		return err
	}

	req := &adapter.RunRequest{
		UsagePath:  usagePath,
		KYCPath:    kycPath,
		LedgerPath: ledgerPath,
		RulesFile:  rulesFile,
		Period:     period,
	}
	if reference != "" {
		if req.Reference, err = time.Parse("2006-01-02", reference); err != nil {
			return fmt.Errorf("--as-of %q must be YYYY-MM-DD", reference)
		}
	}

	history, err := openHistory(&cfg)
	if err != nil {
		// history is optional for a run
		logging.Warn("run history unavailable", zap.Error(err))
		history = nil
	}

	runner := adapter.NewRunAdapter(&cfg, history)
	if formatter.Format() == output.FormatCLI {
		progress := ui.NewWriter(cmd.ErrOrStderr(), noColor)
		if verbose {
			progress.SetVerbosity(ui.VerbosityDebug)
		}
		runner.SetObserver(ui.NewStageReporter(progress))
	}

	summary, runErr := runner.Run(ctx, req)
	if summary != nil {
		if err := formatter.Render(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
	}
	return runErr
}

func openHistory(cfg *config.Config) (storage.Store, error) {
	return storage.StoreFactory(storage.BackendFile, map[string]string{
		"path": cfg.History.Directory,
	})
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
