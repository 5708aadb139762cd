package bonusmalus

import (
	"github.com/shopspring/decimal"

	"microcredit/core/allocation"
	"microcredit/core/types"
	"microcredit/internal/errors"
)

// Rates are the multipliers applied to max_loan per repayment label
type Rates struct {
	StrongAbilityToBorrow   decimal.Decimal `json:"strong_ability_to_borrow"`
	StrongRepaymentCapacity decimal.Decimal `json:"strong_repayment_capacity"`
	AbilityToBorrow         decimal.Decimal `json:"ability_to_borrow"`

	// SplitNegativeSecond classifies a positive mid-month balance followed
	// by a non-positive end-of-month balance as "Ability to borrow"
	SplitNegativeSecond bool `json:"split_negative_second"`
}

// DefaultRates are the production multipliers
func DefaultRates() Rates {
	return Rates{
		StrongAbilityToBorrow:   decimal.RequireFromString("1.20"),
		StrongRepaymentCapacity: decimal.RequireFromString("0.80"),
		AbilityToBorrow:         decimal.RequireFromString("1.10"),
	}
}

// Classify returns the label and multiplier of a balance pair
func (r Rates) Classify(first, second decimal.NullDecimal) (types.RepaymentLabel, decimal.Decimal) {
	if !first.Valid || !second.Valid {
		return types.LabelUncertain, decimal.Zero
	}
	f, s := first.Decimal, second.Decimal
	if r.SplitNegativeSecond && f.IsPositive() && !s.IsPositive() {
		return types.LabelAbilityToBorrow, r.AbilityToBorrow
	}
	if !f.IsPositive() || !s.IsPositive() {
		return types.LabelStrongAbilityToBorrow, r.StrongAbilityToBorrow
	}
	return types.LabelStrongRepaymentCapacity, r.StrongRepaymentCapacity
}

// MaxLoanPriority is the order in which loan columns pick max_loan
var MaxLoanPriority = []types.LoanType{
	types.LoanNano,
	types.LoanMacro,
	types.LoanAdvancedCredit,
	types.LoanCashRollerOver,
}

// Summary counts the rows per repayment label
type Summary struct {
	Labels map[types.RepaymentLabel]int `json:"labels"`

	// Unmatched counts rows with no ledger observation at all
	Unmatched int `json:"unmatched"`
}

// Engine applies bonus/malus adjustments
type Engine struct {
	rates  Rates
	ranges allocation.Config
}

// NewEngine creates an engine. max_loan is read from the product ranges of
// the allocation config.
func NewEngine(rates Rates, ranges allocation.Config) *Engine {
	return &Engine{rates: rates, ranges: ranges}
}

// MaxLoan returns the range maximum of the first populated loan type in
// priority order, or zero when the row has no loan
func (e *Engine) MaxLoan(row *types.Subscriber) decimal.Decimal {
	for _, loan := range MaxLoanPriority {
		if _, ok := row.Loan(loan); !ok {
			continue
		}
		if r, ok := e.ranges.RangeOf(loan); ok {
			return r.Max
		}
	}
	return decimal.Zero
}

// Apply joins the snapshots onto a copy of t and sets the label, the
// bonus/malus and every updated loan column. A row without both balances is
// labelled Uncertain with a zero bonus/malus.
func (e *Engine) Apply(t *types.Table, snapshots map[string]types.BalanceSnapshot) (*types.Table, Summary, error) {
	if missing := t.MissingColumns(types.LoanColumns()...); len(missing) > 0 {
		return nil, Summary{}, errors.MissingColumns("bonus_malus", missing)
	}

	sum := Summary{Labels: make(map[types.RepaymentLabel]int)}
	out := t.Clone()
	for _, row := range out.Rows {
		snap, ok := snapshots[row.SIMNumber]
		if !ok {
			sum.Unmatched++
		}
		row.BalanceFirst = snap.First
		row.BalanceSecond = snap.Second

		label, rate := e.rates.Classify(snap.First, snap.Second)
		bm := e.MaxLoan(row).Mul(rate)
		row.RepaymentLabel = label
		row.BonusMalus = decimal.NewNullDecimal(bm)
		sum.Labels[label]++

		row.UpdatedLoans = make(map[types.LoanType]decimal.Decimal, len(row.Loans))
		for loan, amount := range row.Loans {
			row.UpdatedLoans[loan] = amount.Add(bm)
		}
	}
	out.AddColumns(types.ColBalanceFirst, types.ColBalanceSecond, types.ColRepaymentLabel, types.ColBonusMalus)
	out.AddColumns(types.UpdatedLoanColumns()...)
	return out, sum, nil
}
