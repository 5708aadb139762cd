// Package types defines core domain types shared across all layers.
// This package contains NO business logic - only type definitions.
package types

import "fmt"

// ServiceCategory is one of the five scored service dimensions
type ServiceCategory string

const (
	ServiceMobileMoney ServiceCategory = "Mobile_Money"
	ServiceData        ServiceCategory = "Data_Service"
	ServiceVoice       ServiceCategory = "Voice_Service"
	ServiceSMS         ServiceCategory = "SMS_Service"
	ServiceDigital     ServiceCategory = "Digital_Service"
)

// ServiceOrder is the digit order of a profile code
var ServiceOrder = []ServiceCategory{
	ServiceMobileMoney,
	ServiceData,
	ServiceVoice,
	ServiceSMS,
	ServiceDigital,
}

// ScoreColumn returns the output column holding the category score
func (c ServiceCategory) ScoreColumn() string {
	return string(c) + "_Score"
}

// IsValid checks if the category is one of the five services
func (c ServiceCategory) IsValid() bool {
	for _, s := range ServiceOrder {
		if s == c {
			return true
		}
	}
	return false
}

// CustomerCategory is the CUST_CATEGORY of a subscriber
type CustomerCategory string

const (
	CustomerIndividual CustomerCategory = "Individual"
	CustomerBusiness   CustomerCategory = "Business"
)

// Segment is an ordered risk tier. The zero value means not segmented.
type Segment int

const (
	SegmentNone Segment = iota
	SegmentVeryLow
	SegmentLow
	SegmentMedium
	SegmentHigh
	SegmentVeryHigh
)

// Segments lists the tiers from lowest to highest
var Segments = []Segment{SegmentVeryLow, SegmentLow, SegmentMedium, SegmentHigh, SegmentVeryHigh}

var segmentNames = map[Segment]string{
	SegmentVeryLow:  "Very Low",
	SegmentLow:      "Low",
	SegmentMedium:   "Medium",
	SegmentHigh:     "High",
	SegmentVeryHigh: "Very High",
}

// String returns the segment label
func (s Segment) String() string {
	if name, ok := segmentNames[s]; ok {
		return name
	}
	return ""
}

// Ordinal returns 1 (Very Low) through 5 (Very High), 0 when unset
func (s Segment) Ordinal() int {
	if s < SegmentNone || s > SegmentVeryHigh {
		return 0
	}
	return int(s)
}

// ParseSegment parses a segment label; the empty string is SegmentNone
func ParseSegment(label string) (Segment, error) {
	if label == "" {
		return SegmentNone, nil
	}
	for s, name := range segmentNames {
		if name == label {
			return s, nil
		}
	}
	return SegmentNone, fmt.Errorf("unknown segment %q", label)
}

// LoanType is one of the four credit-line products
type LoanType string

const (
	LoanNano           LoanType = "Nano_Loan"
	LoanAdvancedCredit LoanType = "Advanced_Credit"
	LoanMacro          LoanType = "Macro_Loan"
	LoanCashRollerOver LoanType = "Cash_Roller_Over"
)

// LoanTypes is the column order of loan amounts in output tables
var LoanTypes = []LoanType{LoanNano, LoanAdvancedCredit, LoanMacro, LoanCashRollerOver}

// UpdatedColumn returns the column holding the bonus/malus adjusted amount
func (l LoanType) UpdatedColumn() string {
	return string(l) + "_updated"
}

// RepaymentLabel classifies balance behaviour around the reporting period
type RepaymentLabel string

const (
	LabelStrongAbilityToBorrow   RepaymentLabel = "Strong ability to borrow"
	LabelStrongRepaymentCapacity RepaymentLabel = "Strong repayment capacity"
	LabelAbilityToBorrow         RepaymentLabel = "Ability to borrow"
	LabelUncertain               RepaymentLabel = "Uncertain"
)

// IdentityKey is the legal identity of a subscriber
type IdentityKey struct {
	IDType   string `json:"id_type"`
	IDNumber string `json:"id_number"`
}

// String returns a printable form of the identity
func (k IdentityKey) String() string {
	return k.IDType + ":" + k.IDNumber
}
