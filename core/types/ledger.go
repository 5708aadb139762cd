package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one mobile-money transaction with each party's balance
// after the transaction
type LedgerEntry struct {
	Originator         string              `json:"originator"`
	Destination        string              `json:"destination"`
	Timestamp          time.Time           `json:"timestamp"`
	OriginatorBalance  decimal.NullDecimal `json:"originator_balance"`
	DestinationBalance decimal.NullDecimal `json:"destination_balance"`
}

// BalanceObservation is an averaged balance of a SIM on a date
type BalanceObservation struct {
	SIMNumber string          `json:"sim_number"`
	Date      time.Time       `json:"date"`
	Balance   decimal.Decimal `json:"balance"`
}

// BalanceSnapshot pairs the mid-month and end-of-month balances of a SIM
type BalanceSnapshot struct {
	SIMNumber string              `json:"sim_number"`
	First     decimal.NullDecimal `json:"balance_first"`
	Second    decimal.NullDecimal `json:"balance_second"`
}

// ReportingPeriod is the month the standardized balance dates refer to
type ReportingPeriod struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MidMonth returns the canonical mid-month date (day 15)
func (p ReportingPeriod) MidMonth() time.Time {
	return time.Date(p.Year, p.Month, 15, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last calendar day of the period
func (p ReportingPeriod) EndOfMonth() time.Time {
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC)
}

// String formats the period as YYYY-MM
func (p ReportingPeriod) String() string {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// IsZero reports whether the period is unset
func (p ReportingPeriod) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// ParseReportingPeriod parses YYYY-MM
func ParseReportingPeriod(s string) (ReportingPeriod, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return ReportingPeriod{}, err
	}
	return ReportingPeriod{Year: t.Year(), Month: t.Month()}, nil
}

// DaysInMonth returns the number of days in t's month
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
