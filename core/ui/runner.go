// Package ui - Live stage progress for pipeline runs
package ui

import (
	"fmt"
	"sync"
	"time"

	"microcredit/core/pipeline"
)

// StageReporter prints one line per pipeline stage. It implements
// pipeline.Observer.
type StageReporter struct {
	w *Writer

	mu      sync.Mutex
	started map[pipeline.Stage]time.Time
}

// NewStageReporter creates a reporter writing to w
func NewStageReporter(w *Writer) *StageReporter {
	return &StageReporter{w: w, started: make(map[pipeline.Stage]time.Time)}
}

// StageStarted implements pipeline.Observer
func (r *StageReporter) StageStarted(stage pipeline.Stage) {
	r.mu.Lock()
	r.started[stage] = time.Now()
	r.mu.Unlock()
	r.w.Debug("%s ...", stage)
}

// StageFinished implements pipeline.Observer
func (r *StageReporter) StageFinished(report pipeline.StageReport) {
	r.w.Success("%-14s %6d → %-6d %s",
		report.Name,
		report.RowsIn,
		report.RowsOut,
		r.w.color(Dim, formatDuration(report.Duration)))
}

// StageFailed implements pipeline.Observer
func (r *StageReporter) StageFailed(stage pipeline.Stage, err error) {
	r.mu.Lock()
	started, ok := r.started[stage]
	r.mu.Unlock()
	elapsed := ""
	if ok {
		elapsed = fmt.Sprintf(" after %s", formatDuration(time.Since(started)))
	}
	r.w.Error("%s failed%s: %v", stage, elapsed, err)
}
