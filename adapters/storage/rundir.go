package storage

import (
	"context"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"microcredit/core/ingest"
	"microcredit/core/pipeline"
	"microcredit/core/types"
	"microcredit/internal/logging"
)

// RunDirOptions select what a RunDir persists
type RunDirOptions struct {
	// WriteIntermediate writes every stage table; otherwise only the final one
	WriteIntermediate bool

	// Parquet also writes the final table as parquet
	Parquet bool

	// Postgres receives the final credit lines when non-nil
	Postgres *PostgresSink
}

// RunDir writes the tables of one run under a directory
type RunDir struct {
	dir  string
	opts RunDirOptions

	mu      sync.Mutex
	outputs map[string]string
}

// NewRunDir creates a writer for dir
func NewRunDir(dir string, opts RunDirOptions) *RunDir {
	return &RunDir{dir: dir, opts: opts, outputs: make(map[string]string)}
}

// Dir returns the run directory
func (d *RunDir) Dir() string {
	return d.dir
}

// Outputs returns the files written so far keyed by output name
func (d *RunDir) Outputs() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]string, len(d.outputs))
	for k, v := range d.outputs {
		out[k] = v
	}
	return out
}

func (d *RunDir) record(name, path string) {
	d.mu.Lock()
	d.outputs[name] = path
	d.mu.Unlock()
}

// WriteTable implements pipeline.Output
func (d *RunDir) WriteTable(ctx context.Context, name string, raw *ingest.RawTable) error {
	if !d.opts.WriteIntermediate && name != pipeline.OutputFinal {
		return nil
	}
	path := filepath.Join(d.dir, name)
	if err := WriteCSV(path, raw); err != nil {
		return err
	}
	d.record(name, path)
	logging.Debug("table written", zap.String("path", path), zap.Int("rows", len(raw.Records)))
	return nil
}

// WriteFinal implements pipeline.Output
func (d *RunDir) WriteFinal(ctx context.Context, runID string, t *types.Table) error {
	if d.opts.Parquet {
		path := filepath.Join(d.dir, pipeline.OutputFinalParquet)
		if err := WriteParquet(path, t); err != nil {
			return err
		}
		d.record(pipeline.OutputFinalParquet, path)
	}
	if d.opts.Postgres != nil {
		if err := d.opts.Postgres.EnsureSchema(ctx); err != nil {
			return err
		}
		n, err := d.opts.Postgres.WriteCreditLines(ctx, runID, t)
		if err != nil {
			return err
		}
		logging.Info("credit lines stored", zap.Int("records", n), zap.String("table", d.opts.Postgres.table))
	}
	return nil
}
