// Package adapter provides thin adapters over the pipeline.
// It loads the extracts, wires persistence and records run history; all
// decision logic stays in the core packages.
package adapter

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"microcredit/adapters/storage"
	"microcredit/core/ingest"
	"microcredit/core/output"
	"microcredit/core/pipeline"
	"microcredit/core/rules"
	"microcredit/core/types"
	"microcredit/internal/config"
	"microcredit/internal/errors"
	"microcredit/internal/logging"
	"microcredit/internal/metrics"
)

// RunRequest names the extracts of one run
type RunRequest struct {
	UsagePath  string `json:"usage_path"`
	KYCPath    string `json:"kyc_path"`
	LedgerPath string `json:"ledger_path,omitempty"`

	// RulesFile overrides the configured rules file
	RulesFile string `json:"rules_file,omitempty"`

	// Period overrides the reporting period (YYYY-MM)
	Period string `json:"period,omitempty"`

	// Reference is the as-of date; now when zero
	Reference time.Time `json:"reference,omitempty"`
}

// RunAdapter is a THIN wrapper around the pipeline
type RunAdapter struct {
	cfg      *config.Config
	history  storage.Store
	metrics  *metrics.Metrics
	observer pipeline.Observer
}

// NewRunAdapter creates an adapter. history may be nil.
func NewRunAdapter(cfg *config.Config, history storage.Store) *RunAdapter {
	return &RunAdapter{cfg: cfg, history: history}
}

// SetMetrics sets the metrics recorder
func (a *RunAdapter) SetMetrics(m *metrics.Metrics) {
	a.metrics = m
}

// SetObserver sets the stage progress observer
func (a *RunAdapter) SetObserver(o pipeline.Observer) {
	a.observer = o
}

// LoadRules resolves the rules of a request
func (a *RunAdapter) LoadRules(req *RunRequest) (*rules.Rules, error) {
	path := req.RulesFile
	if path == "" {
		path = a.cfg.RulesFile
	}
	r, err := rules.Load(path)
	if err != nil {
		return nil, err
	}
	if req.Period != "" {
		p, err := types.ParseReportingPeriod(req.Period)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeInput, err, "period %q must be YYYY-MM", req.Period)
		}
		r.Period = p
	}
	return r, nil
}

// Run executes the pipeline over the request's extracts. A summary is
// returned even when the run fails part-way.
func (a *RunAdapter) Run(ctx context.Context, req *RunRequest) (*output.Summary, error) {
	r, err := a.LoadRules(req)
	if err != nil {
		return nil, err
	}
	in, err := readInputs(req)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	opts := storage.RunDirOptions{
		WriteIntermediate: a.cfg.Output.WriteIntermediate,
		Parquet:           a.cfg.Output.Parquet,
	}
	if a.cfg.Postgres.Enabled {
		sink, err := storage.OpenPostgres(ctx, a.cfg.Postgres.DSN, a.cfg.Postgres.Table)
		if err != nil {
			return nil, err
		}
		defer sink.Close()
		opts.Postgres = sink
	}
	dir := storage.NewRunDir(filepath.Join(a.cfg.Output.Directory, runID), opts)

	p, err := pipeline.New(r, pipeline.Options{
		RunID:                runID,
		Reference:            req.Reference,
		Workers:              a.cfg.Ledger.Workers,
		RestrictToPopulation: a.cfg.Ledger.RestrictToPopulation,
	})
	if err != nil {
		return nil, err
	}
	p.SetOutput(dir)
	p.SetObserver(a.observer)
	p.SetMetrics(a.metrics)

	res, runErr := p.Run(ctx, in)
	summary := output.NewSummary(res, dir.Outputs(), runErr)

	if a.history != nil {
		rec := Record(summary, res)
		rec.RulesFile = req.RulesFile
		if rec.RulesFile == "" {
			rec.RulesFile = a.cfg.RulesFile
		}
		// history is best effort; the run outputs are already on disk
		if err := a.history.Save(ctx, rec); err != nil {
			logging.Warn("failed to save run history", zap.String("run_id", runID), zap.Error(err))
		}
	}
	return summary, runErr
}

func readInputs(req *RunRequest) (pipeline.Inputs, error) {
	if req.UsagePath == "" || req.KYCPath == "" {
		return pipeline.Inputs{}, errors.Input("usage and kyc paths are required")
	}
	var (
		in  pipeline.Inputs
		err error
	)
	if in.Usage, err = storage.ReadCSV(req.UsagePath); err != nil {
		return in, err
	}
	if in.KYC, err = storage.ReadCSV(req.KYCPath); err != nil {
		return in, err
	}
	if req.LedgerPath != "" {
		var ledger *ingest.RawTable
		if ledger, err = storage.ReadCSV(req.LedgerPath); err != nil {
			return in, err
		}
		in.Ledger = ledger
	}
	return in, nil
}

// Record converts a run summary into a history record
func Record(s *output.Summary, res *pipeline.Result) *storage.RunRecord {
	rec := &storage.RunRecord{
		ID:        s.RunID,
		Status:    storage.StatusSucceeded,
		StartedAt: s.StartedAt,
		Period:    s.Period,
		InputHash: s.InputHash,
		Stages:    make(map[string]int, len(s.Stages)),
		Outputs:   s.Outputs,
		Error:     s.Error,
	}
	if s.Error != "" {
		rec.Status = storage.StatusFailed
	}
	if res != nil {
		rec.FinishedAt = res.FinishedAt
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now().UTC()
	}
	for _, st := range s.Stages {
		rec.Stages[st.Name] = st.RowsOut
	}
	if len(s.Segments) > 0 {
		rec.Segments = make(map[string]int, len(s.Segments))
		for _, c := range s.Segments {
			rec.Segments[c.Name] = c.Count
		}
	}
	if len(s.Labels) > 0 {
		rec.Labels = make(map[string]int, len(s.Labels))
		for _, c := range s.Labels {
			rec.Labels[c.Name] = c.Count
		}
	}
	rec.Violations = len(s.Violations)
	return rec
}
