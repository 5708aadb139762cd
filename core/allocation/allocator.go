// Package allocation maps profile codes onto initial credit-line amounts.
package allocation

import (
	"github.com/shopspring/decimal"

	"microcredit/core/profile"
	"microcredit/core/types"
	"microcredit/internal/errors"
)

// AmountPlaces is the rounding precision of allocated amounts
const AmountPlaces = 2

// Range is the closed amount interval of one loan product
type Range struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Product is a loan type offered to a customer category
type Product struct {
	Loan  types.LoanType `json:"loan"`
	Range Range          `json:"range"`
}

// Config controls the allocation curve
type Config struct {
	Weights [profile.CodeLength]int `json:"weights"`

	// MinScore and MaxScore calibrate the weighted score onto [0,1]
	MinScore int `json:"min_score"`
	MaxScore int `json:"max_score"`

	// Extrapolate lets scores outside the calibration range leave the
	// product range instead of clamping to its bounds
	Extrapolate bool `json:"extrapolate"`

	Products map[types.CustomerCategory][]Product `json:"products"`
}

func rng(lo, hi int64) Range {
	return Range{Min: decimal.NewFromInt(lo), Max: decimal.NewFromInt(hi)}
}

// DefaultConfig is the production allocation grid
func DefaultConfig() Config {
	return Config{
		Weights:  profile.DefaultWeights,
		MinScore: 15,
		MaxScore: 75,
		Products: map[types.CustomerCategory][]Product{
			types.CustomerIndividual: {
				{Loan: types.LoanNano, Range: rng(20, 45)},
				{Loan: types.LoanAdvancedCredit, Range: rng(100, 500)},
			},
			types.CustomerBusiness: {
				{Loan: types.LoanMacro, Range: rng(25, 250)},
				{Loan: types.LoanCashRollerOver, Range: rng(100, 500)},
			},
		},
	}
}

// Validate checks the calibration range and every product range
func (c Config) Validate() error {
	if c.MaxScore <= c.MinScore {
		return errors.Newf(errors.TypeConfig, "allocation: max_score %d must exceed min_score %d", c.MaxScore, c.MinScore)
	}
	for cat, products := range c.Products {
		for _, p := range products {
			if p.Range.Max.LessThan(p.Range.Min) {
				return errors.Newf(errors.TypeConfig, "allocation: %s/%s range max is below min", cat, p.Loan)
			}
		}
	}
	return nil
}

// RangeOf returns the configured range of a loan type
func (c Config) RangeOf(loan types.LoanType) (Range, bool) {
	for _, products := range c.Products {
		for _, p := range products {
			if p.Loan == loan {
				return p.Range, true
			}
		}
	}
	return Range{}, false
}

// CreditLine is the allocation of one profile
type CreditLine struct {
	WeightedScore int                                `json:"weighted_score"`
	Normalized    decimal.Decimal                    `json:"normalized"`
	Amounts       map[types.LoanType]decimal.Decimal `json:"amounts"`
}

// Allocator computes credit lines
type Allocator struct {
	cfg Config
}

// New creates an allocator
func New(cfg Config) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Allocator{cfg: cfg}, nil
}

// Config returns the allocation config
func (a *Allocator) Config() Config {
	return a.cfg
}

// Normalize maps a weighted score onto the calibration range
func (a *Allocator) Normalize(ws int) decimal.Decimal {
	span := decimal.NewFromInt(int64(a.cfg.MaxScore - a.cfg.MinScore))
	n := decimal.NewFromInt(int64(ws - a.cfg.MinScore)).Div(span)
	if a.cfg.Extrapolate {
		return n
	}
	if n.IsNegative() {
		return decimal.Zero
	}
	if one := decimal.NewFromInt(1); n.GreaterThan(one) {
		return one
	}
	return n
}

// Interpolate returns the amount at normalized position n within r
func Interpolate(r Range, n decimal.Decimal) decimal.Decimal {
	return r.Min.Add(r.Max.Sub(r.Min).Mul(n)).Round(AmountPlaces)
}

// Allocate computes the credit line of a profile code. A category with no
// configured products yields an empty amount set.
func (a *Allocator) Allocate(code string, cat types.CustomerCategory) (CreditLine, error) {
	ws, err := profile.Weighted(code, a.cfg.Weights)
	if err != nil {
		return CreditLine{}, errors.Wrap(errors.TypeInput, "allocation", err)
	}
	n := a.Normalize(ws)
	line := CreditLine{
		WeightedScore: ws,
		Normalized:    n,
		Amounts:       make(map[types.LoanType]decimal.Decimal, 2),
	}
	for _, p := range a.cfg.Products[cat] {
		line.Amounts[p.Loan] = Interpolate(p.Range, n)
	}
	return line, nil
}

// AllocateTable sets the loan amounts of every row on a copy of t
func (a *Allocator) AllocateTable(t *types.Table) (*types.Table, error) {
	if missing := t.MissingColumns(types.ColProfileCode, types.ColCustCategory); len(missing) > 0 {
		return nil, errors.MissingColumns("allocator", missing)
	}
	out := t.Clone()
	for _, row := range out.Rows {
		line, err := a.Allocate(row.ProfileCode, row.Category)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeInput, err, "allocator: %s", row.SIMNumber)
		}
		row.Loans = nil
		for loan, amount := range line.Amounts {
			row.SetLoan(loan, amount)
		}
	}
	out.AddColumns(types.LoanColumns()...)
	return out, nil
}
