// Package api - API types for the eligibility service
// These types define the contract of the HTTP endpoints.
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"microcredit/core/types"
)

// RunRequest is the input to POST /runs. Paths are relative to the
// server's input root.
type RunRequest struct {
	Usage  string `json:"usage"`
	KYC    string `json:"kyc"`
	Ledger string `json:"ledger,omitempty"`

	// Period overrides the reporting period (YYYY-MM)
	Period string `json:"period,omitempty"`

	// AsOf is the reference date (YYYY-MM-DD); today when empty
	AsOf string `json:"as_of,omitempty"`
}

// AllocateRequest is the input to POST /allocate
type AllocateRequest struct {
	ProfileCode string                 `json:"profile_code"`
	Category    types.CustomerCategory `json:"category"`
}

// AllocateResponse is the output of POST /allocate
type AllocateResponse struct {
	ProfileCode   string                             `json:"profile_code"`
	Category      types.CustomerCategory             `json:"category"`
	WeightedScore int                                `json:"weighted_score"`
	Normalized    decimal.Decimal                    `json:"normalized"`
	Amounts       map[types.LoanType]decimal.Decimal `json:"amounts"`
}

// HealthResponse is the output of GET /health
type HealthResponse struct {
	Status  string    `json:"status"`
	Version string    `json:"version"`
	Time    time.Time `json:"time"`
}

// ErrorResponse wraps an error detail
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail provides error information
type ErrorDetail struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Columns []string `json:"columns,omitempty"`
}
