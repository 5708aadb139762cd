// Package identity collapses SIM registrations that share one legal
// identity down to a single best-qualified row.
package identity

import (
	"sort"

	"microcredit/core/types"
	"microcredit/internal/errors"
)

// Summary describes what Resolve did
type Summary struct {
	RowsIn     int `json:"rows_in"`
	RowsOut    int `json:"rows_out"`
	Identities int `json:"identities"`

	// Collapsed counts identities that had more than one row
	Collapsed int `json:"collapsed"`

	// Dropped lists the SIM numbers removed, in input order
	Dropped []string `json:"dropped,omitempty"`
}

// RequiredColumns are the columns the resolver reads
func RequiredColumns() []string {
	return []string{types.ColIDType, types.ColIDNumber, types.ColSegment}
}

// Better reports whether a outranks b: higher segment first, then higher
// maximum loan, then the lower SIM number.
func Better(a, b *types.Subscriber) bool {
	if oa, ob := a.Segment.Ordinal(), b.Segment.Ordinal(); oa != ob {
		return oa > ob
	}
	la, okA := a.MaxLoan()
	lb, okB := b.MaxLoan()
	switch {
	case okA && !okB:
		return true
	case !okA && okB:
		return false
	case okA && okB && !la.Equal(lb):
		return la.GreaterThan(lb)
	}
	return a.SIMNumber < b.SIMNumber
}

type group struct {
	first int
	rows  []*types.Subscriber
}

func groupRows(rows []*types.Subscriber) ([]types.IdentityKey, map[types.IdentityKey]*group) {
	var order []types.IdentityKey
	groups := make(map[types.IdentityKey]*group)
	for i, row := range rows {
		g, ok := groups[row.Identity]
		if !ok {
			g = &group{first: i}
			groups[row.Identity] = g
			order = append(order, row.Identity)
		}
		g.rows = append(g.rows, row)
	}
	return order, groups
}

// Resolve keeps one row per identity. Output rows follow the first
// appearance of each identity in t.
func Resolve(t *types.Table) (*types.Table, Summary, error) {
	if missing := t.MissingColumns(RequiredColumns()...); len(missing) > 0 {
		return nil, Summary{}, errors.MissingColumns("identity", missing)
	}

	order, groups := groupRows(t.Rows)
	sum := Summary{RowsIn: t.Len(), Identities: len(order)}

	winners := make(map[*types.Subscriber]bool, len(order))
	kept := make([]*types.Subscriber, 0, len(order))
	for _, key := range order {
		g := groups[key]
		best := g.rows[0]
		for _, r := range g.rows[1:] {
			if Better(r, best) {
				best = r
			}
		}
		if len(g.rows) > 1 {
			sum.Collapsed++
		}
		winners[best] = true
		kept = append(kept, best.Clone())
	}
	for _, r := range t.Rows {
		if !winners[r] {
			sum.Dropped = append(sum.Dropped, r.SIMNumber)
		}
	}
	sum.RowsOut = len(kept)
	return t.WithRows(kept), sum, nil
}

// Violation is an identity that still maps to several rows or SIMs
type Violation struct {
	Identity types.IdentityKey `json:"identity"`
	Rows     int               `json:"rows"`
	SIMs     []string          `json:"sims"`
}

// Report is the result of Validate
type Report struct {
	Identities int         `json:"identities"`
	Violations []Violation `json:"violations,omitempty"`
}

// OK reports whether every identity has exactly one row and one SIM
func (r Report) OK() bool {
	return len(r.Violations) == 0
}

// Validate checks the one-row-per-identity guarantee. It does not correct
// anything; callers decide how to surface violations.
func Validate(t *types.Table) Report {
	order, groups := groupRows(t.Rows)
	rep := Report{Identities: len(order)}
	for _, key := range order {
		g := groups[key]
		sims := distinctSIMs(g.rows)
		if len(g.rows) == 1 && len(sims) == 1 {
			continue
		}
		rep.Violations = append(rep.Violations, Violation{Identity: key, Rows: len(g.rows), SIMs: sims})
	}
	return rep
}

func distinctSIMs(rows []*types.Subscriber) []string {
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		seen[r.SIMNumber] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
