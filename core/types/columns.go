package types

// Registry and usage columns read by the pipeline
const (
	ColSIMNumber          = "SIM_NUMBER"
	ColIDType             = "ID_TYPE"
	ColIDNumber           = "ID_NUMBER"
	ColCustCategory       = "CUST_CATEGORY"
	ColAge                = "age"
	ColTenureYears        = "tenure_years"
	ColRegistrationStatus = "REGISTRATION_STATUS"
	ColMobMoney90Days     = "HAS_USED_MOB_MONEY_IN_LAST_90_DAYS"
	ColBirthDate          = "BIRTH_DATE"
	ColAcquisitionDate    = "ACQUISITION_DATE"
)

// Columns produced by the pipeline stages
const (
	ColProfileCode    = "Profile_Code"
	ColWeightedScore  = "Weighted_Score"
	ColSegment        = "Segment"
	ColRepaymentLabel = "Repayment_Label"
	ColBonusMalus     = "Bonus_Malus"
	ColBalanceFirst   = "Balance_First"
	ColBalanceSecond  = "Balance_Second"
)

// Ledger columns as exported by the mobile-money platform
const (
	ColLedgerOrigin      = "nameOrig"
	ColLedgerDest        = "nameDest"
	ColLedgerDate        = "transaction_date"
	ColLedgerOrigBalance = "newbalanceOrig"
	ColLedgerDestBalance = "newbalanceDest"
)

// Balance observation columns
const (
	ColDateOfTheDay = "DATE_OF_THE_DAY"
	ColBalance      = "balance"
)

// ScoreColumns returns the five category score columns in profile order
func ScoreColumns() []string {
	cols := make([]string, len(ServiceOrder))
	for i, c := range ServiceOrder {
		cols[i] = c.ScoreColumn()
	}
	return cols
}

// LoanColumns returns the four loan amount columns
func LoanColumns() []string {
	cols := make([]string, len(LoanTypes))
	for i, l := range LoanTypes {
		cols[i] = string(l)
	}
	return cols
}

// UpdatedLoanColumns returns the four bonus/malus adjusted loan columns
func UpdatedLoanColumns() []string {
	cols := make([]string, len(LoanTypes))
	for i, l := range LoanTypes {
		cols[i] = l.UpdatedColumn()
	}
	return cols
}
