package ui

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"microcredit/core/pipeline"
)

func TestWriterTreatsMessagesLiterally(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	w.Success("%s", "100% allocated")
	assert.Equal(t, "✓ 100% allocated\n", buf.String())
}

func TestWriterVerbosity(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	w.Debug("hidden")
	assert.Empty(t, buf.String())

	w.SetVerbosity(VerbosityDebug)
	w.Debug("shown")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	w.SetVerbosity(VerbosityQuiet)
	w.Info("quiet")
	assert.Empty(t, buf.String())
}

func TestTableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	table := w.NewTable("SEGMENT", "N")
	table.AddRow("Very High", "12")
	table.AddRow("Low")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "SEGMENT   │ N"))
	assert.True(t, strings.HasPrefix(lines[3], "Low       │"))
}

func TestTableWidthCountsRunes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	table := w.NewTable("FLOW", "X")
	table.AddRow("4 → 3", "a")
	table.AddRow("ab", "b", "dropped")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, "4 → 3 │ a", lines[2])
	assert.Equal(t, "ab    │ b", lines[3])
	assert.Equal(t, "──────┼──", lines[1])
}

func TestStageReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewStageReporter(NewWriter(&buf, true))

	r.StageStarted(pipeline.StageFilter)
	r.StageFinished(pipeline.StageReport{
		Stage:    pipeline.StageFilter,
		Name:     "filter",
		RowsIn:   10,
		RowsOut:  7,
		Duration: 3 * time.Millisecond,
	})
	assert.Contains(t, buf.String(), "filter")
	assert.Contains(t, buf.String(), "3ms")

	r.StageStarted(pipeline.StageScoring)
	r.StageFailed(pipeline.StageScoring, stderrors.New("missing column"))
	assert.Contains(t, buf.String(), "scoring failed after")
	assert.Contains(t, buf.String(), "missing column")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m 5s", formatDuration(125*time.Second))
}
