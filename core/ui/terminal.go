// Package ui renders run progress and summaries on a terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"
)

// ANSI styles used by the writer
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
)

// Verbosity levels
const (
	VerbosityQuiet = iota
	VerbosityNormal
	VerbosityDebug
)

// Writer writes styled lines. Messages are format strings with arguments;
// never pass user data as the format.
type Writer struct {
	out       io.Writer
	noColor   bool
	verbosity int
}

// NewWriter creates a writer; a nil out writes to stdout
func NewWriter(out io.Writer, noColor bool) *Writer {
	if out == nil {
		out = os.Stdout
	}
	return &Writer{out: out, noColor: noColor, verbosity: VerbosityNormal}
}

// SetVerbosity sets the level below which Info and Debug are dropped
func (w *Writer) SetVerbosity(level int) {
	w.verbosity = level
}

func (w *Writer) color(style, text string) string {
	if w.noColor || style == "" {
		return text
	}
	return style + text + Reset
}

// Println writes one formatted line
func (w *Writer) Println(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Header writes a section title surrounded by blank lines
func (w *Writer) Header(title string) {
	fmt.Fprintf(w.out, "\n%s\n\n", w.color(Bold+Cyan, "━━━ "+title+" ━━━"))
}

// SubHeader writes a subsection title
func (w *Writer) SubHeader(title string) {
	fmt.Fprintln(w.out, w.color(Bold, "▸ "+title))
}

func (w *Writer) status(minLevel int, mark, style, format string, args []interface{}) {
	if w.verbosity < minLevel {
		return
	}
	fmt.Fprintf(w.out, "%s%s\n", w.color(style, mark), fmt.Sprintf(format, args...))
}

// Success writes a completed step
func (w *Writer) Success(format string, args ...interface{}) {
	w.status(VerbosityQuiet, "✓ ", Green, format, args)
}

// Warning writes a non-fatal problem
func (w *Writer) Warning(format string, args ...interface{}) {
	w.status(VerbosityQuiet, "⚠ ", Yellow, format, args)
}

// Error writes a failure
func (w *Writer) Error(format string, args ...interface{}) {
	w.status(VerbosityQuiet, "✗ ", Red, format, args)
}

// Info writes a note, hidden when quiet
func (w *Writer) Info(format string, args ...interface{}) {
	w.status(VerbosityNormal, "ℹ ", Blue, format, args)
}

// Debug writes a dimmed detail shown only in debug verbosity
func (w *Writer) Debug(format string, args ...interface{}) {
	if w.verbosity < VerbosityDebug {
		return
	}
	fmt.Fprintln(w.out, w.color(Dim, "  "+fmt.Sprintf(format, args...)))
}

// Table is a left-aligned text table. Widths count runes so that arrows
// and box characters line up.
type Table struct {
	w       *Writer
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable starts a table with the given column headers
func (w *Writer) NewTable(headers ...string) *Table {
	t := &Table{w: w, headers: headers, widths: make([]int, len(headers))}
	t.fit(headers)
	return t
}

func (t *Table) fit(cells []string) {
	for i, c := range cells {
		if n := utf8.RuneCountInString(c); n > t.widths[i] {
			t.widths[i] = n
		}
	}
}

// AddRow appends a row; missing cells are blank and extra cells dropped
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.fit(row)
	t.rows = append(t.rows, row)
}

func (t *Table) line(cells []string) string {
	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteString(" │ ")
		}
		b.WriteString(c)
		b.WriteString(strings.Repeat(" ", t.widths[i]-utf8.RuneCountInString(c)))
	}
	return b.String()
}

// Render writes the header, a rule and every row
func (t *Table) Render() {
	out := t.w.out
	fmt.Fprintln(out, t.w.color(Bold, t.line(t.headers)))

	rule := make([]string, len(t.widths))
	for i, n := range t.widths {
		rule[i] = strings.Repeat("─", n)
	}
	fmt.Fprintln(out, strings.Join(rule, "─┼─"))

	for _, row := range t.rows {
		fmt.Fprintln(out, t.line(row))
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}
