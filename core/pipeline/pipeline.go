// Package pipeline runs the eligibility stages in dependency order:
// ingest, filter, scoring, segmentation, allocation, identity resolution,
// balance extraction and bonus/malus.
//
// Each stage reads its whole input table, computes, and hands a new table
// to the next stage. A failing stage aborts the run after the outputs of
// every earlier stage have been written.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"microcredit/core/allocation"
	"microcredit/core/bonusmalus"
	"microcredit/core/determinism"
	"microcredit/core/filter"
	"microcredit/core/identity"
	"microcredit/core/ingest"
	"microcredit/core/profile"
	"microcredit/core/rules"
	"microcredit/core/scoring"
	"microcredit/core/segmentation"
	"microcredit/core/types"
	"microcredit/internal/errors"
	"microcredit/internal/logging"
	"microcredit/internal/metrics"
)

// Inputs are the raw extracts of one run
type Inputs struct {
	Usage  *ingest.RawTable
	KYC    *ingest.RawTable
	Ledger *ingest.RawTable
}

// Options tune a run
type Options struct {
	// RunID identifies the run; generated when empty
	RunID string

	// Reference is the date ages are derived against and the default
	// reporting period is taken from; now when zero
	Reference time.Time

	// Workers is the number of ledger partitions aggregated in parallel
	Workers int

	// RestrictToPopulation drops balances of SIMs outside the resolved table
	RestrictToPopulation bool
}

// Result is everything a run computed
type Result struct {
	RunID      string                `json:"run_id"`
	Period     types.ReportingPeriod `json:"period"`
	InputHash  string                `json:"input_hash"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`

	Stages     []StageReport         `json:"stages"`
	Excluded   map[filter.Reason]int `json:"excluded,omitempty"`
	Cutoffs    segmentation.Cutoffs  `json:"cutoffs"`
	Segments   map[types.Segment]int `json:"segments,omitempty"`
	Identity   identity.Summary      `json:"identity"`
	Validation identity.Report       `json:"validation"`
	BonusMalus bonusmalus.Summary    `json:"bonus_malus"`
	Final      *types.Table          `json:"-"`
}

// RowsOut returns the output row count of a completed stage
func (r *Result) RowsOut(stage Stage) (int, bool) {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s.RowsOut, true
		}
	}
	return 0, false
}

// Pipeline runs the stages under one set of rules
type Pipeline struct {
	rules     *rules.Rules
	scorer    *scoring.Scorer
	segmenter *segmentation.Segmenter
	allocator *allocation.Allocator
	engine    *bonusmalus.Engine

	output   Output
	observer Observer
	metrics  *metrics.Metrics
	opts     Options
}

// New creates a pipeline. Nil rules means rules.Default.
func New(r *rules.Rules, opts Options) (*Pipeline, error) {
	if r == nil {
		r = rules.Default()
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	alloc, err := allocation.New(r.Allocation)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		rules:     r,
		scorer:    scoring.NewScorer(r.Catalog),
		segmenter: &segmentation.Segmenter{Weights: r.Weights},
		allocator: alloc,
		engine:    bonusmalus.NewEngine(r.Rates, r.Allocation),
		output:    nopOutput{},
		observer:  nopObserver{},
		opts:      opts,
	}, nil
}

// SetOutput sets where stage tables are written
func (p *Pipeline) SetOutput(o Output) {
	if o == nil {
		o = nopOutput{}
	}
	p.output = o
}

// SetObserver sets the stage progress observer
func (p *Pipeline) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	p.observer = o
}

// SetMetrics sets the metrics recorder; nil disables metrics
func (p *Pipeline) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// Rules returns the rules the pipeline runs under
func (p *Pipeline) Rules() *rules.Rules {
	return p.rules
}

// Run executes every stage over in
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	if in.Usage == nil || in.KYC == nil {
		return nil, errors.Input("usage and kyc extracts are required")
	}

	ref := p.opts.Reference
	if ref.IsZero() {
		ref = time.Now().UTC()
	}
	res := &Result{
		RunID:     p.opts.RunID,
		Period:    p.rules.PeriodFor(ref),
		InputHash: Fingerprint(in).Hex(),
		StartedAt: time.Now().UTC(),
	}
	if res.RunID == "" {
		res.RunID = uuid.New().String()
	}
	log := logging.With(zap.String("run_id", res.RunID))
	log.Info("pipeline run started",
		zap.String("period", res.Period.String()),
		zap.String("input_hash", res.InputHash),
	)

	var table *types.Table

	err := p.stage(ctx, res, StageIngest, len(in.Usage.Records), func() (int, error) {
		merged, err := ingest.Merge(in.Usage, in.KYC, ref)
		if err != nil {
			return 0, err
		}
		table, err = ingest.Decode(merged)
		if err != nil {
			return 0, err
		}
		return table.Len(), nil
	})
	if err != nil {
		return res, err
	}

	err = p.stage(ctx, res, StageFilter, table.Len(), func() (int, error) {
		fr, err := filter.Apply(table, p.rules.Filter)
		if err != nil {
			return 0, err
		}
		res.Excluded = fr.Excluded
		table = fr.Table
		return table.Len(), p.write(ctx, OutputFiltered, table)
	})
	if err != nil {
		return res, err
	}

	err = p.stage(ctx, res, StageScoring, table.Len(), func() (int, error) {
		scored, err := p.scorer.ScoreAll(table)
		if err != nil {
			return 0, err
		}
		table, err = profile.EncodeTable(scored, p.rules.Policy)
		if err != nil {
			return 0, err
		}
		return table.Len(), p.write(ctx, OutputScored, table)
	})
	if err != nil {
		return res, err
	}

	err = p.stage(ctx, res, StageSegmentation, table.Len(), func() (int, error) {
		segmented, cut, err := p.segmenter.Segment(table)
		if err != nil {
			return 0, err
		}
		table = segmented
		res.Cutoffs = cut
		res.Segments = make(map[types.Segment]int, len(types.Segments))
		for _, row := range table.Rows {
			res.Segments[row.Segment]++
		}
		for seg, n := range res.Segments {
			p.metrics.CountSegment(seg.String(), n)
		}
		return table.Len(), p.write(ctx, OutputSegmented, table)
	})
	if err != nil {
		return res, err
	}

	err = p.stage(ctx, res, StageAllocation, table.Len(), func() (int, error) {
		allocated, err := p.allocator.AllocateTable(table)
		if err != nil {
			return 0, err
		}
		table = allocated
		return table.Len(), p.write(ctx, OutputAllocated, table)
	})
	if err != nil {
		return res, err
	}

	err = p.stage(ctx, res, StageIdentity, table.Len(), func() (int, error) {
		resolved, sum, err := identity.Resolve(table)
		if err != nil {
			return 0, err
		}
		table = resolved
		res.Identity = sum
		res.Validation = identity.Validate(table)
		for _, v := range res.Validation.Violations {
			log.Warn("identity still maps to several registrations",
				zap.String("identity", v.Identity.String()),
				zap.Int("rows", v.Rows),
				zap.Strings("sims", v.SIMs),
			)
		}
		p.metrics.AddViolations(len(res.Validation.Violations))
		return table.Len(), p.write(ctx, OutputResolved, table)
	})
	if err != nil {
		return res, err
	}

	var snapshots map[string]types.BalanceSnapshot
	ledgerRows := 0
	if in.Ledger != nil {
		ledgerRows = len(in.Ledger.Records)
	}
	err = p.stage(ctx, res, StageBalances, ledgerRows, func() (int, error) {
		if in.Ledger == nil {
			log.Warn("no ledger extract, every subscriber will be Uncertain")
			snapshots = map[string]types.BalanceSnapshot{}
			return 0, nil
		}
		entries, err := ingest.DecodeLedger(in.Ledger)
		if err != nil {
			return 0, err
		}
		opts := bonusmalus.ExtractOptions{Workers: p.opts.Workers}
		if p.opts.RestrictToPopulation {
			opts.Population = bonusmalus.PopulationOf(table)
		}
		balances, err := bonusmalus.ExtractBalances(ctx, entries, res.Period, opts)
		if err != nil {
			return 0, err
		}
		snapshots = balances.Snapshot()
		obs := ingest.EncodeObservations(balances.Observations)
		if err := p.output.WriteTable(ctx, OutputBalances, obs); err != nil {
			return 0, err
		}
		return len(balances.Observations), nil
	})
	if err != nil {
		return res, err
	}

	err = p.stage(ctx, res, StageBonusMalus, table.Len(), func() (int, error) {
		final, sum, err := p.engine.Apply(table, snapshots)
		if err != nil {
			return 0, err
		}
		table = final
		res.BonusMalus = sum
		for label, n := range sum.Labels {
			p.metrics.CountLabel(string(label), n)
		}
		if err := p.write(ctx, OutputFinal, table); err != nil {
			return 0, err
		}
		return table.Len(), p.output.WriteFinal(ctx, res.RunID, table)
	})
	if err != nil {
		return res, err
	}

	res.Final = table
	res.FinishedAt = time.Now().UTC()
	p.metrics.RunCompleted()
	log.Info("pipeline run complete",
		zap.Int("subscribers", table.Len()),
		zap.Duration("duration", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res, nil
}

// stage runs fn as one stage, records its report and wraps its error
func (p *Pipeline) stage(ctx context.Context, res *Result, stage Stage, rowsIn int, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: stage, Cause: err}
	}

	log := logging.Stage(res.RunID, stage.String())
	log.Debug("stage started", zap.Int("rows_in", rowsIn))
	p.observer.StageStarted(stage)
	started := time.Now()

	rowsOut, err := fn()
	if err != nil {
		log.Error("stage failed", zap.Error(err))
		p.metrics.StageFailed(stage.String())
		p.observer.StageFailed(stage, err)
		res.FinishedAt = time.Now().UTC()
		return &StageError{Stage: stage, Cause: err}
	}

	report := StageReport{
		Stage:    stage,
		Name:     stage.String(),
		RowsIn:   rowsIn,
		RowsOut:  rowsOut,
		Duration: time.Since(started),
	}
	res.Stages = append(res.Stages, report)
	logging.StageDone(log, rowsIn, rowsOut, started)
	p.metrics.ObserveStage(stage.String(), rowsOut, started)
	p.observer.StageFinished(report)
	return nil
}

func (p *Pipeline) write(ctx context.Context, name string, t *types.Table) error {
	return p.output.WriteTable(ctx, name, ingest.Encode(t))
}

// Fingerprint hashes the raw inputs of a run. Two runs over the same
// extracts share a fingerprint.
func Fingerprint(in Inputs) determinism.ContentHash {
	fp := determinism.NewFingerprint("microcredit/inputs")
	for _, raw := range []*ingest.RawTable{in.Usage, in.KYC, in.Ledger} {
		if raw == nil {
			fp.Record()
			continue
		}
		fp.Record(raw.Header...)
		for _, rec := range raw.Records {
			fp.Record(rec...)
		}
	}
	return fp.Sum()
}
