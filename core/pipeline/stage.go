package pipeline

import (
	"context"
	"fmt"
	"time"

	"microcredit/core/ingest"
	"microcredit/core/types"
)

// Stage is one step of a pipeline run. Stages run in declaration order.
type Stage int

const (
	StageIngest Stage = iota
	StageFilter
	StageScoring
	StageSegmentation
	StageAllocation
	StageIdentity
	StageBalances
	StageBonusMalus
)

// Stages lists every stage in execution order
var Stages = []Stage{
	StageIngest,
	StageFilter,
	StageScoring,
	StageSegmentation,
	StageAllocation,
	StageIdentity,
	StageBalances,
	StageBonusMalus,
}

// String returns the stage name
func (s Stage) String() string {
	names := []string{
		"ingest", "filter", "scoring", "segmentation",
		"allocation", "identity", "balances", "bonus_malus",
	}
	if int(s) >= 0 && int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// Output files written after each stage
const (
	OutputFiltered     = "filtered_data.csv"
	OutputScored       = "scored_data.csv"
	OutputSegmented    = "segmented_data.csv"
	OutputAllocated    = "cash_allocated_data.csv"
	OutputResolved     = "final_clients.csv"
	OutputBalances     = "transactions_previous_month.csv"
	OutputFinal        = "final_clients_with_updated_loans.csv"
	OutputFinalParquet = "final_clients_with_updated_loans.parquet"
)

// StageError is a stage that aborted. Outputs of earlier stages have
// already been written when it is returned.
type StageError struct {
	Stage Stage
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	return e.Cause
}

// StageReport is the row accounting of a completed stage
type StageReport struct {
	Stage    Stage         `json:"-"`
	Name     string        `json:"stage"`
	RowsIn   int           `json:"rows_in"`
	RowsOut  int           `json:"rows_out"`
	Duration time.Duration `json:"duration"`
}

// Output persists stage tables
type Output interface {
	// WriteTable writes one intermediate table under name
	WriteTable(ctx context.Context, name string, raw *ingest.RawTable) error

	// WriteFinal persists the final adjusted credit lines
	WriteFinal(ctx context.Context, runID string, t *types.Table) error
}

// Observer is notified as stages progress
type Observer interface {
	StageStarted(stage Stage)
	StageFinished(report StageReport)
	StageFailed(stage Stage, err error)
}

type nopObserver struct{}

func (nopObserver) StageStarted(Stage) {}
func (nopObserver) StageFinished(StageReport) {}
func (nopObserver) StageFailed(Stage, error) {}

type nopOutput struct{}

func (nopOutput) WriteTable(context.Context, string, *ingest.RawTable) error { return nil }
func (nopOutput) WriteFinal(context.Context, string, *types.Table) error { return nil }
