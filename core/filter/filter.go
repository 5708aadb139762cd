// Package filter restricts the merged subscriber table to the eligible
// population.
package filter

import (
	"microcredit/core/types"
	"microcredit/internal/errors"
)

// Criteria are the eligibility rules
type Criteria struct {
	MinAge                int    `json:"min_age"`
	MaxAge                int    `json:"max_age"`
	RegistrationStatus    string `json:"registration_status"`
	RequireMobMoney90Days bool   `json:"require_mob_money_90_days"`
}

// DefaultCriteria keeps active, KYC-compliant subscribers aged 21 to 60
func DefaultCriteria() Criteria {
	return Criteria{
		MinAge:                21,
		MaxAge:                60,
		RegistrationStatus:    "Accepted",
		RequireMobMoney90Days: true,
	}
}

// Reason names why a row was excluded
type Reason string

const (
	ReasonInactive      Reason = "inactive_90_days"
	ReasonAge           Reason = "age_out_of_range"
	ReasonNotRegistered Reason = "registration_not_accepted"
)

// Result is the filtered table and the exclusion counts
type Result struct {
	Table    *types.Table
	Excluded map[Reason]int
}

// RequiredColumns are the columns the filter reads
func RequiredColumns() []string {
	return []string{types.ColMobMoney90Days, types.ColAge, types.ColRegistrationStatus}
}

// Apply keeps the rows that satisfy every criterion. Each excluded row is
// counted once, under the first criterion it fails.
func Apply(t *types.Table, c Criteria) (*Result, error) {
	if missing := t.MissingColumns(RequiredColumns()...); len(missing) > 0 {
		return nil, errors.MissingColumns("filter", missing)
	}

	res := &Result{Excluded: make(map[Reason]int)}
	kept := make([]*types.Subscriber, 0, len(t.Rows))
	for _, row := range t.Rows {
		if reason, ok := c.check(row); !ok {
			res.Excluded[reason]++
			continue
		}
		kept = append(kept, row.Clone())
	}
	res.Table = t.WithRows(kept)
	return res, nil
}

func (c Criteria) check(row *types.Subscriber) (Reason, bool) {
	if c.RequireMobMoney90Days && (row.MobMoney90Days == nil || *row.MobMoney90Days != 1) {
		return ReasonInactive, false
	}
	if row.Age == nil || *row.Age < c.MinAge || *row.Age > c.MaxAge {
		return ReasonAge, false
	}
	if row.RegistrationStatus != c.RegistrationStatus {
		return ReasonNotRegistered, false
	}
	return "", true
}
