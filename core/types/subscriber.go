package types

import (
	"math"

	"github.com/shopspring/decimal"
)

// Subscriber is one SIM registration with its usage features and the
// fields computed by the pipeline stages
type Subscriber struct {
	SIMNumber          string           `json:"sim_number"`
	Identity           IdentityKey      `json:"identity"`
	Category           CustomerCategory `json:"cust_category"`
	Age                *int             `json:"age,omitempty"`
	TenureYears        *int             `json:"tenure_years,omitempty"`
	RegistrationStatus string           `json:"registration_status"`
	MobMoney90Days     *int             `json:"has_used_mob_money_in_last_90_days,omitempty"`

	// Features holds numeric usage columns; a missing cell has no key
	Features map[string]float64 `json:"features,omitempty"`

	// Attributes holds the original text of passthrough columns
	Attributes map[string]string `json:"attributes,omitempty"`

	Scores        map[ServiceCategory]int `json:"scores,omitempty"`
	ProfileCode   string                  `json:"profile_code,omitempty"`
	WeightedScore int                     `json:"weighted_score,omitempty"`
	Segment       Segment                 `json:"segment,omitempty"`

	Loans map[LoanType]decimal.Decimal `json:"loans,omitempty"`

	BalanceFirst   decimal.NullDecimal          `json:"balance_first"`
	BalanceSecond  decimal.NullDecimal          `json:"balance_second"`
	RepaymentLabel RepaymentLabel               `json:"repayment_label,omitempty"`
	BonusMalus     decimal.NullDecimal          `json:"bonus_malus"`
	UpdatedLoans   map[LoanType]decimal.Decimal `json:"updated_loans,omitempty"`
}

// Feature returns a raw feature value; NaN counts as missing
func (s *Subscriber) Feature(name string) (float64, bool) {
	v, ok := s.Features[name]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Score returns a category score if one was computed
func (s *Subscriber) Score(c ServiceCategory) (int, bool) {
	v, ok := s.Scores[c]
	return v, ok
}

// SetScore sets a category score
func (s *Subscriber) SetScore(c ServiceCategory, score int) {
	if s.Scores == nil {
		s.Scores = make(map[ServiceCategory]int, len(ServiceOrder))
	}
	s.Scores[c] = score
}

// Loan returns the allocated amount for a loan type
func (s *Subscriber) Loan(t LoanType) (decimal.Decimal, bool) {
	v, ok := s.Loans[t]
	return v, ok
}

// SetLoan sets an allocated amount
func (s *Subscriber) SetLoan(t LoanType, amount decimal.Decimal) {
	if s.Loans == nil {
		s.Loans = make(map[LoanType]decimal.Decimal, 2)
	}
	s.Loans[t] = amount
}

// MaxLoan returns the largest populated loan amount
func (s *Subscriber) MaxLoan() (decimal.Decimal, bool) {
	var (
		best  decimal.Decimal
		found bool
	)
	for _, t := range LoanTypes {
		v, ok := s.Loans[t]
		if !ok {
			continue
		}
		if !found || v.GreaterThan(best) {
			best = v
			found = true
		}
	}
	return best, found
}

// Clone returns a deep copy
func (s *Subscriber) Clone() *Subscriber {
	c := *s
	c.Age = cloneInt(s.Age)
	c.TenureYears = cloneInt(s.TenureYears)
	c.MobMoney90Days = cloneInt(s.MobMoney90Days)
	c.Features = cloneMap(s.Features)
	c.Attributes = cloneMap(s.Attributes)
	c.Scores = cloneMap(s.Scores)
	c.Loans = cloneMap(s.Loans)
	c.UpdatedLoans = cloneMap(s.UpdatedLoans)
	return &c
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
