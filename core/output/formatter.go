// Package output renders pipeline run summaries.
// This package produces human and machine-readable outputs.
package output

import (
	"fmt"
	"io"
	"time"

	"microcredit/core/determinism"
	"microcredit/core/filter"
	"microcredit/core/identity"
	"microcredit/core/pipeline"
	"microcredit/core/segmentation"
	"microcredit/core/types"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable CLI table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"

	// FormatMarkdown is a markdown report
	FormatMarkdown Format = "markdown"
)

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render produces output for the given summary
	Render(w io.Writer, s *Summary) error
}

// Count is one labelled tally
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary is the reportable outcome of a run
type Summary struct {
	RunID     string    `json:"run_id"`
	Period    string    `json:"period"`
	InputHash string    `json:"input_hash"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`

	// Stages are the completed stages in execution order
	Stages []pipeline.StageReport `json:"stages"`

	Excluded []Count              `json:"excluded,omitempty"`
	Cutoffs  segmentation.Cutoffs `json:"cutoffs"`

	// Segments are ordered from Very Low to Very High
	Segments []Count `json:"segments,omitempty"`

	// Labels are the repayment labels in sorted order
	Labels []Count `json:"labels,omitempty"`

	Identity   identity.Summary     `json:"identity"`
	Violations []identity.Violation `json:"violations,omitempty"`

	// Outputs maps an output name to the file written
	Outputs map[string]string `json:"outputs,omitempty"`

	// Error is set when the run aborted
	Error string `json:"error,omitempty"`
}

// NewSummary builds a summary from a run result. res may be partial when
// runErr is set.
func NewSummary(res *pipeline.Result, outputs map[string]string, runErr error) *Summary {
	s := &Summary{Outputs: outputs}
	if runErr != nil {
		s.Error = runErr.Error()
	}
	if res == nil {
		return s
	}

	s.RunID = res.RunID
	s.Period = res.Period.String()
	s.InputHash = res.InputHash
	s.StartedAt = res.StartedAt
	if !res.FinishedAt.IsZero() {
		s.Duration = res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond).String()
	}
	s.Stages = res.Stages
	s.Cutoffs = res.Cutoffs
	s.Identity = res.Identity
	s.Violations = res.Validation.Violations

	determinism.RangeMapSorted(res.Excluded, func(r filter.Reason, n int) bool {
		s.Excluded = append(s.Excluded, Count{Name: string(r), Count: n})
		return true
	})
	if len(res.Segments) > 0 {
		for _, seg := range types.Segments {
			s.Segments = append(s.Segments, Count{Name: seg.String(), Count: res.Segments[seg]})
		}
	}
	determinism.RangeMapSorted(res.BonusMalus.Labels, func(l types.RepaymentLabel, n int) bool {
		s.Labels = append(s.Labels, Count{Name: string(l), Count: n})
		return true
	})
	return s
}

// Get returns the formatter of a format name
func Get(name string, noColor bool) (Formatter, error) {
	switch Format(name) {
	case FormatCLI, "":
		return &CLIFormatter{NoColor: noColor}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatMarkdown:
		return &MarkdownFormatter{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (cli, json, markdown)", name)
}
