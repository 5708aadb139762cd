package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"microcredit/core/types"
	"microcredit/internal/errors"
)

type field struct {
	decode func(s *types.Subscriber, v string) error
	encode func(s *types.Subscriber) string
}

var fields = buildFields()

func buildFields() map[string]field {
	f := map[string]field{
		types.ColSIMNumber: {
			decode: func(s *types.Subscriber, v string) error { s.SIMNumber = v; return nil },
			encode: func(s *types.Subscriber) string { return s.SIMNumber },
		},
		types.ColIDType: {
			decode: func(s *types.Subscriber, v string) error { s.Identity.IDType = v; return nil },
			encode: func(s *types.Subscriber) string { return s.Identity.IDType },
		},
		types.ColIDNumber: {
			decode: func(s *types.Subscriber, v string) error { s.Identity.IDNumber = v; return nil },
			encode: func(s *types.Subscriber) string { return s.Identity.IDNumber },
		},
		types.ColCustCategory: {
			decode: func(s *types.Subscriber, v string) error { s.Category = types.CustomerCategory(v); return nil },
			encode: func(s *types.Subscriber) string { return string(s.Category) },
		},
		types.ColRegistrationStatus: {
			decode: func(s *types.Subscriber, v string) error { s.RegistrationStatus = v; return nil },
			encode: func(s *types.Subscriber) string { return s.RegistrationStatus },
		},
		types.ColAge:            intField(func(s *types.Subscriber) **int { return &s.Age }),
		types.ColTenureYears:    intField(func(s *types.Subscriber) **int { return &s.TenureYears }),
		types.ColMobMoney90Days: intField(func(s *types.Subscriber) **int { return &s.MobMoney90Days }),
		types.ColProfileCode: {
			decode: func(s *types.Subscriber, v string) error { s.ProfileCode = v; return nil },
			encode: func(s *types.Subscriber) string { return s.ProfileCode },
		},
		types.ColWeightedScore: {
			decode: func(s *types.Subscriber, v string) error {
				n, err := parseInt(v)
				s.WeightedScore = n
				return err
			},
			encode: func(s *types.Subscriber) string {
				if s.ProfileCode == "" && s.WeightedScore == 0 {
					return ""
				}
				return strconv.Itoa(s.WeightedScore)
			},
		},
		types.ColSegment: {
			decode: func(s *types.Subscriber, v string) (err error) { s.Segment, err = types.ParseSegment(v); return err },
			encode: func(s *types.Subscriber) string { return s.Segment.String() },
		},
		types.ColRepaymentLabel: {
			decode: func(s *types.Subscriber, v string) error { s.RepaymentLabel = types.RepaymentLabel(v); return nil },
			encode: func(s *types.Subscriber) string { return string(s.RepaymentLabel) },
		},
		types.ColBalanceFirst:  nullDecimalField(func(s *types.Subscriber) *decimal.NullDecimal { return &s.BalanceFirst }),
		types.ColBalanceSecond: nullDecimalField(func(s *types.Subscriber) *decimal.NullDecimal { return &s.BalanceSecond }),
		types.ColBonusMalus:    nullDecimalField(func(s *types.Subscriber) *decimal.NullDecimal { return &s.BonusMalus }),
	}
	for _, cat := range types.ServiceOrder {
		f[cat.ScoreColumn()] = field{
			decode: func(s *types.Subscriber, v string) error {
				n, err := parseInt(v)
				if err == nil {
					s.SetScore(cat, n)
				}
				return err
			},
			encode: func(s *types.Subscriber) string {
				if n, ok := s.Score(cat); ok {
					return strconv.Itoa(n)
				}
				return ""
			},
		}
	}
	for _, loan := range types.LoanTypes {
		f[string(loan)] = field{
			decode: func(s *types.Subscriber, v string) error {
				d, err := decimal.NewFromString(v)
				if err == nil {
					s.SetLoan(loan, d)
				}
				return err
			},
			encode: func(s *types.Subscriber) string {
				if d, ok := s.Loan(loan); ok {
					return d.String()
				}
				return ""
			},
		}
		f[loan.UpdatedColumn()] = field{
			decode: func(s *types.Subscriber, v string) error {
				d, err := decimal.NewFromString(v)
				if err == nil {
					if s.UpdatedLoans == nil {
						s.UpdatedLoans = make(map[types.LoanType]decimal.Decimal)
					}
					s.UpdatedLoans[loan] = d
				}
				return err
			},
			encode: func(s *types.Subscriber) string {
				if d, ok := s.UpdatedLoans[loan]; ok {
					return d.String()
				}
				return ""
			},
		}
	}
	return f
}

func intField(ptr func(*types.Subscriber) **int) field {
	return field{
		decode: func(s *types.Subscriber, v string) error {
			n, err := parseInt(v)
			if err == nil {
				*ptr(s) = types.IntPtr(n)
			}
			return err
		},
		encode: func(s *types.Subscriber) string {
			if p := *ptr(s); p != nil {
				return strconv.Itoa(*p)
			}
			return ""
		},
	}
}

func nullDecimalField(ptr func(*types.Subscriber) *decimal.NullDecimal) field {
	return field{
		decode: func(s *types.Subscriber, v string) error {
			d, err := decimal.NewFromString(v)
			if err == nil {
				*ptr(s) = decimal.NewNullDecimal(d)
			}
			return err
		},
		encode: func(s *types.Subscriber) string {
			if nd := *ptr(s); nd.Valid {
				return nd.Decimal.String()
			}
			return ""
		},
	}
}

// parseInt accepts integral floats such as "25.0" written by other tools
func parseInt(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, strconv.ErrSyntax
	}
	return int(f), nil
}

func isMissing(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "null", "na":
		return true
	}
	return false
}

// Decode converts a raw table into subscribers. Known columns fill typed
// fields. Every other cell is kept as an attribute, and finite numeric
// cells also become features. Missing cells are left unset.
func Decode(raw *RawTable) (*types.Table, error) {
	if _, err := raw.Require("decode", types.ColSIMNumber); err != nil {
		return nil, err
	}

	rows := make([]*types.Subscriber, 0, len(raw.Records))
	for n, rec := range raw.Records {
		s := &types.Subscriber{}
		for i, col := range raw.Header {
			v := Cell(rec, i)
			if isMissing(v) {
				continue
			}
			v = strings.TrimSpace(v)
			if f, ok := fields[col]; ok {
				if err := f.decode(s, v); err != nil {
					return nil, errors.Parsing("decode", err).
						WithContext("row", n+1).
						WithContext("column", col)
				}
				continue
			}
			if num, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(num, 0) && !math.IsNaN(num) {
				if s.Features == nil {
					s.Features = make(map[string]float64)
				}
				s.Features[col] = num
			}
			// the cell text is written back unchanged
			if s.Attributes == nil {
				s.Attributes = make(map[string]string)
			}
			s.Attributes[col] = v
		}
		rows = append(rows, s)
	}
	return types.NewTable(raw.Header, rows), nil
}

// Encode converts a table back into raw records following its schema
func Encode(t *types.Table) *RawTable {
	out := &RawTable{
		Header:  append([]string{}, t.Columns...),
		Records: make([][]string, 0, t.Len()),
	}
	for _, s := range t.Rows {
		rec := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			if f, ok := fields[col]; ok {
				rec[i] = f.encode(s)
				continue
			}
			if v, ok := s.Attributes[col]; ok {
				rec[i] = v
				continue
			}
			if v, ok := s.Feature(col); ok {
				rec[i] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		out.Records = append(out.Records, rec)
	}
	return out
}
