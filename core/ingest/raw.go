// Package ingest converts raw string tables to and from the typed
// subscriber model, and merges the usage and registry extracts.
package ingest

import (
	"time"

	"microcredit/internal/errors"
)

// RawTable is a header plus string records, as read from a CSV file
type RawTable struct {
	Header  []string
	Records [][]string
}

// Index returns the position of a column, or -1
func (r *RawTable) Index(col string) int {
	for i, h := range r.Header {
		if h == col {
			return i
		}
	}
	return -1
}

// Require returns the positions of the given columns or a missing column
// error naming every absent one
func (r *RawTable) Require(stage string, cols ...string) ([]int, error) {
	idx := make([]int, len(cols))
	var missing []string
	for i, c := range cols {
		idx[i] = r.Index(c)
		if idx[i] < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, errors.MissingColumns(stage, missing)
	}
	return idx, nil
}

// Cell returns a record's value for column i, or "" when the record is short
func Cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
	"20060102",
	"02/01/2006",
}

// ParseDate accepts the timestamp layouts found in platform extracts
func ParseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// WholeYears returns the full years elapsed between from and ref using a
// 365.25 day year, truncated toward zero
func WholeYears(from, ref time.Time) int {
	days := int(ref.Sub(from).Hours() / 24)
	return int(float64(days) / 365.25)
}
