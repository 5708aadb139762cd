package output

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microcredit/core/bonusmalus"
	"microcredit/core/filter"
	"microcredit/core/identity"
	"microcredit/core/pipeline"
	"microcredit/core/types"
)

func sampleResult() *pipeline.Result {
	start := time.Date(2024, 12, 10, 8, 0, 0, 0, time.UTC)
	return &pipeline.Result{
		RunID:      "run-7",
		Period:     types.ReportingPeriod{Year: 2024, Month: time.November},
		InputHash:  "0123456789abcdef0123456789abcdef",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Stages: []pipeline.StageReport{
			{Stage: pipeline.StageIngest, Name: "ingest", RowsIn: 6, RowsOut: 6},
			{Stage: pipeline.StageFilter, Name: "filter", RowsIn: 6, RowsOut: 4},
		},
		Excluded: map[filter.Reason]int{filter.ReasonNotRegistered: 1, filter.ReasonInactive: 1},
		Segments: map[types.Segment]int{types.SegmentVeryHigh: 1, types.SegmentLow: 3},
		Identity: identity.Summary{RowsIn: 4, RowsOut: 3, Identities: 3, Collapsed: 1, Dropped: []string{"s2"}},
		Validation: identity.Report{Identities: 3, Violations: []identity.Violation{
			{Identity: types.IdentityKey{IDType: "NID", IDNumber: "9"}, Rows: 2, SIMs: []string{"a", "b"}},
		}},
		BonusMalus: bonusmalus.Summary{Labels: map[types.RepaymentLabel]int{
			types.LabelUncertain:             2,
			types.LabelStrongAbilityToBorrow: 1,
		}},
	}
}

func TestNewSummaryOrdersCounts(t *testing.T) {
	s := NewSummary(sampleResult(), map[string]string{"final": "/tmp/x.csv"}, nil)

	assert.Equal(t, "2024-11", s.Period)
	assert.Equal(t, "1.5s", s.Duration)
	assert.Equal(t, []Count{{"inactive_90_days", 1}, {"registration_not_accepted", 1}}, s.Excluded)
	require.Len(t, s.Segments, 5)
	assert.Equal(t, Count{"Very Low", 0}, s.Segments[0])
	assert.Equal(t, Count{"Low", 3}, s.Segments[1])
	assert.Equal(t, Count{"Very High", 1}, s.Segments[4])
	assert.Equal(t, []Count{{"Strong ability to borrow", 1}, {"Uncertain", 2}}, s.Labels)
	assert.Empty(t, s.Error)
}

func TestNewSummaryOfFailedRun(t *testing.T) {
	s := NewSummary(nil, nil, stderrors.New("stage scoring: boom"))
	assert.Equal(t, "stage scoring: boom", s.Error)
	assert.Empty(t, s.Stages)
}

func TestFormatters(t *testing.T) {
	s := NewSummary(sampleResult(), map[string]string{"final": "/tmp/final.csv"}, nil)

	var buf bytes.Buffer
	cli, err := Get("cli", true)
	require.NoError(t, err)
	require.NoError(t, cli.Render(&buf, s))
	text := buf.String()
	assert.Contains(t, text, "run-7")
	assert.Contains(t, text, "0123456789abcdef")
	assert.NotContains(t, text, "0123456789abcdef0")
	assert.Contains(t, text, "4 registrations → 3 identities")
	assert.Contains(t, text, "identity NID:9 still has 2 rows (a, b)")
	assert.Contains(t, text, "/tmp/final.csv")
	assert.NotContains(t, text, "\033[")

	buf.Reset()
	js, err := Get("json", false)
	require.NoError(t, err)
	require.NoError(t, js.Render(&buf, s))
	var decoded Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, s.Labels, decoded.Labels)
	assert.Equal(t, "filter", decoded.Stages[1].Name)

	buf.Reset()
	md, err := Get("markdown", false)
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, md.Format())
	require.NoError(t, md.Render(&buf, s))
	assert.Contains(t, buf.String(), "| filter | 6 | 4 |")
	assert.Contains(t, buf.String(), "| Very High | 1 |")

	_, err = Get("html", false)
	assert.Error(t, err)
}
