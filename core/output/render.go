package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"microcredit/core/determinism"
	"microcredit/core/ui"
)

// CLIFormatter renders a summary as terminal tables
type CLIFormatter struct {
	NoColor bool
}

// Format implements Formatter
func (f *CLIFormatter) Format() Format {
	return FormatCLI
}

// Render implements Formatter
func (f *CLIFormatter) Render(w io.Writer, s *Summary) error {
	out := ui.NewWriter(w, f.NoColor)

	out.Header("MICRO-CREDIT ELIGIBILITY RUN")
	out.Println("Run:        %s", s.RunID)
	out.Println("Period:     %s", s.Period)
	out.Println("Inputs:     %s", shortHash(s.InputHash))
	if s.Duration != "" {
		out.Println("Duration:   %s", s.Duration)
	}
	out.Println("")

	out.SubHeader("Stages")
	stages := out.NewTable("STAGE", "ROWS IN", "ROWS OUT", "DURATION")
	for _, st := range s.Stages {
		stages.AddRow(st.Name, fmt.Sprint(st.RowsIn), fmt.Sprint(st.RowsOut), st.Duration.Round(time.Microsecond).String())
	}
	stages.Render()
	out.Println("")

	if len(s.Excluded) > 0 {
		out.SubHeader("Excluded by filter")
		renderCounts(out.NewTable("REASON", "ROWS"), s.Excluded)
		out.Println("")
	}

	if len(s.Segments) > 0 {
		out.SubHeader(fmt.Sprintf("Segments (cutoffs %g / %g / %g / %g)", s.Cutoffs.P20, s.Cutoffs.P40, s.Cutoffs.P60, s.Cutoffs.P80))
		renderCounts(out.NewTable("SEGMENT", "SUBSCRIBERS"), s.Segments)
		out.Println("")
	}

	if s.Identity.RowsIn > 0 {
		out.SubHeader("Identity resolution")
		out.Println("%d registrations → %d identities (%d collapsed, %d dropped)",
			s.Identity.RowsIn, s.Identity.RowsOut, s.Identity.Collapsed, len(s.Identity.Dropped))
		out.Println("")
	}

	if len(s.Labels) > 0 {
		out.SubHeader("Repayment labels")
		renderCounts(out.NewTable("LABEL", "SUBSCRIBERS"), s.Labels)
		out.Println("")
	}

	for _, v := range s.Violations {
		out.Warning("identity %s still has %d rows (%s)", v.Identity, v.Rows, strings.Join(v.SIMs, ", "))
	}

	if len(s.Outputs) > 0 {
		out.SubHeader("Outputs")
		determinism.RangeMapSorted(s.Outputs, func(name, path string) bool {
			out.Println("  %s", path)
			return true
		})
		out.Println("")
	}

	if s.Error != "" {
		out.Error("%s", s.Error)
	} else {
		out.Success("run complete")
	}
	return nil
}

func renderCounts(t *ui.Table, counts []Count) {
	for _, c := range counts {
		t.AddRow(c.Name, fmt.Sprint(c.Count))
	}
	t.Render()
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}

// JSONFormatter renders a summary as indented JSON
type JSONFormatter struct{}

// Format implements Formatter
func (f *JSONFormatter) Format() Format {
	return FormatJSON
}

// Render implements Formatter
func (f *JSONFormatter) Render(w io.Writer, s *Summary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

// MarkdownFormatter renders a summary as a markdown report
type MarkdownFormatter struct{}

// Format implements Formatter
func (f *MarkdownFormatter) Format() Format {
	return FormatMarkdown
}

// Render implements Formatter
func (f *MarkdownFormatter) Render(w io.Writer, s *Summary) error {
	fmt.Fprintln(w, "# Micro-credit Eligibility Run")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "**Run:** `%s`  \n", s.RunID)
	fmt.Fprintf(w, "**Period:** %s  \n", s.Period)
	fmt.Fprintf(w, "**Inputs:** `%s`\n", shortHash(s.InputHash))
	fmt.Fprintln(w, "")

	fmt.Fprintln(w, "## Stages")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "| Stage | Rows in | Rows out |")
	fmt.Fprintln(w, "|-------|---------|----------|")
	for _, st := range s.Stages {
		fmt.Fprintf(w, "| %s | %d | %d |\n", st.Name, st.RowsIn, st.RowsOut)
	}
	fmt.Fprintln(w, "")

	markdownCounts(w, "Segments", "Segment", s.Segments)
	markdownCounts(w, "Repayment labels", "Label", s.Labels)

	if len(s.Violations) > 0 {
		fmt.Fprintln(w, "## Identity violations")
		fmt.Fprintln(w, "")
		for _, v := range s.Violations {
			fmt.Fprintf(w, "- `%s`: %d rows (%s)\n", v.Identity, v.Rows, strings.Join(v.SIMs, ", "))
		}
		fmt.Fprintln(w, "")
	}

	if s.Error != "" {
		fmt.Fprintf(w, "> **Run failed:** %s\n", s.Error)
	}
	return nil
}

func markdownCounts(w io.Writer, title, column string, counts []Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "## %s\n\n", title)
	fmt.Fprintf(w, "| %s | Subscribers |\n", column)
	fmt.Fprintln(w, "|---|---|")
	for _, c := range counts {
		fmt.Fprintf(w, "| %s | %d |\n", c.Name, c.Count)
	}
	fmt.Fprintln(w, "")
}
