// Package profile encodes the five category scores into a profile code.
package profile

import (
	"fmt"
	"strings"

	"microcredit/core/types"
	"microcredit/internal/errors"
)

// Policy decides what a missing category score becomes
type Policy string

const (
	// PolicyZeroFill writes '0' for a missing score
	PolicyZeroFill Policy = "zero_fill"

	// PolicyStrict fails the row with a missing value error
	PolicyStrict Policy = "strict"
)

// CodeLength is the number of digits in a profile code
const CodeLength = 5

// ParsePolicy parses a policy name; the empty string is PolicyZeroFill
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyZeroFill:
		return PolicyZeroFill, nil
	case PolicyStrict:
		return PolicyStrict, nil
	}
	return "", errors.Newf(errors.TypeConfig, "unknown profile policy %q", s)
}

// Encode concatenates the row's scores in service order
func Encode(row *types.Subscriber, policy Policy) (string, error) {
	var b strings.Builder
	b.Grow(CodeLength)
	for _, cat := range types.ServiceOrder {
		score, ok := row.Score(cat)
		if !ok {
			if policy == PolicyStrict {
				return "", errors.MissingValue(row.SIMNumber, cat.ScoreColumn())
			}
			score = 0
		}
		if score < 0 || score > 9 {
			return "", errors.Newf(errors.TypeInput, "%s: %s score %d is not a single digit", row.SIMNumber, cat, score)
		}
		b.WriteByte(byte('0' + score))
	}
	return b.String(), nil
}

// EncodeTable sets Profile_Code on every row of a copy of t
func EncodeTable(t *types.Table, policy Policy) (*types.Table, error) {
	if missing := t.MissingColumns(types.ScoreColumns()...); len(missing) > 0 {
		return nil, errors.MissingColumns("profile", missing)
	}
	out := t.Clone()
	for _, row := range out.Rows {
		code, err := Encode(row, policy)
		if err != nil {
			return nil, err
		}
		row.ProfileCode = code
	}
	out.AddColumns(types.ColProfileCode)
	return out, nil
}

// Digits parses a profile code into its five digits
func Digits(code string) ([CodeLength]int, error) {
	var d [CodeLength]int
	if len(code) != CodeLength {
		return d, fmt.Errorf("profile code %q has length %d, want %d", code, len(code), CodeLength)
	}
	for i := 0; i < CodeLength; i++ {
		c := code[i]
		if c < '0' || c > '9' {
			return d, fmt.Errorf("profile code %q has non-digit %q at %d", code, c, i)
		}
		d[i] = int(c - '0')
	}
	return d, nil
}

// Weighted returns the dot product of the code digits and weights
func Weighted(code string, weights [CodeLength]int) (int, error) {
	d, err := Digits(code)
	if err != nil {
		return 0, err
	}
	ws := 0
	for i := range d {
		ws += d[i] * weights[i]
	}
	return ws, nil
}

// DefaultWeights weight Mobile Money highest and Digital lowest
var DefaultWeights = [CodeLength]int{5, 4, 3, 2, 1}
