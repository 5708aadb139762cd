package storage

import (
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"microcredit/core/types"
	"microcredit/internal/errors"
)

// creditLineRow is the flat parquet schema of a final credit line. Money is
// kept as decimal strings; an empty string is a missing amount.
type creditLineRow struct {
	SIMNumber       string `parquet:"name=sim_number, type=BYTE_ARRAY, convertedtype=UTF8"`
	IDType          string `parquet:"name=id_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	IDNumber        string `parquet:"name=id_number, type=BYTE_ARRAY, convertedtype=UTF8"`
	CustCategory    string `parquet:"name=cust_category, type=BYTE_ARRAY, convertedtype=UTF8"`
	ProfileCode     string `parquet:"name=profile_code, type=BYTE_ARRAY, convertedtype=UTF8"`
	WeightedScore   int32  `parquet:"name=weighted_score, type=INT32"`
	Segment         string `parquet:"name=segment, type=BYTE_ARRAY, convertedtype=UTF8"`
	NanoLoan        string `parquet:"name=nano_loan, type=BYTE_ARRAY, convertedtype=UTF8"`
	AdvancedCredit  string `parquet:"name=advanced_credit, type=BYTE_ARRAY, convertedtype=UTF8"`
	MacroLoan       string `parquet:"name=macro_loan, type=BYTE_ARRAY, convertedtype=UTF8"`
	CashRollerOver  string `parquet:"name=cash_roller_over, type=BYTE_ARRAY, convertedtype=UTF8"`
	BalanceFirst    string `parquet:"name=balance_first, type=BYTE_ARRAY, convertedtype=UTF8"`
	BalanceSecond   string `parquet:"name=balance_second, type=BYTE_ARRAY, convertedtype=UTF8"`
	RepaymentLabel  string `parquet:"name=repayment_label, type=BYTE_ARRAY, convertedtype=UTF8"`
	BonusMalus      string `parquet:"name=bonus_malus, type=BYTE_ARRAY, convertedtype=UTF8"`
	NanoUpdated     string `parquet:"name=nano_loan_updated, type=BYTE_ARRAY, convertedtype=UTF8"`
	AdvancedUpdated string `parquet:"name=advanced_credit_updated, type=BYTE_ARRAY, convertedtype=UTF8"`
	MacroUpdated    string `parquet:"name=macro_loan_updated, type=BYTE_ARRAY, convertedtype=UTF8"`
	CashUpdated     string `parquet:"name=cash_roller_over_updated, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func amount(m map[types.LoanType]decimal.Decimal, loan types.LoanType) string {
	if d, ok := m[loan]; ok {
		return d.String()
	}
	return ""
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func toCreditLineRow(s *types.Subscriber) *creditLineRow {
	return &creditLineRow{
		SIMNumber:       s.SIMNumber,
		IDType:          s.Identity.IDType,
		IDNumber:        s.Identity.IDNumber,
		CustCategory:    string(s.Category),
		ProfileCode:     s.ProfileCode,
		WeightedScore:   int32(s.WeightedScore),
		Segment:         s.Segment.String(),
		NanoLoan:        amount(s.Loans, types.LoanNano),
		AdvancedCredit:  amount(s.Loans, types.LoanAdvancedCredit),
		MacroLoan:       amount(s.Loans, types.LoanMacro),
		CashRollerOver:  amount(s.Loans, types.LoanCashRollerOver),
		BalanceFirst:    nullString(s.BalanceFirst),
		BalanceSecond:   nullString(s.BalanceSecond),
		RepaymentLabel:  string(s.RepaymentLabel),
		BonusMalus:      nullString(s.BonusMalus),
		NanoUpdated:     amount(s.UpdatedLoans, types.LoanNano),
		AdvancedUpdated: amount(s.UpdatedLoans, types.LoanAdvancedCredit),
		MacroUpdated:    amount(s.UpdatedLoans, types.LoanMacro),
		CashUpdated:     amount(s.UpdatedLoans, types.LoanCashRollerOver),
	}
}

// WriteParquet writes the final credit lines of t as a snappy parquet file
func WriteParquet(path string, t *types.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Storage("failed to create output directory", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Storage("failed to create parquet", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(creditLineRow), 1)
	if err != nil {
		file.Close()
		return errors.Storage("parquet schema", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range t.Rows {
		if err := pw.Write(toCreditLineRow(row)); err != nil {
			pw.WriteStop()
			file.Close()
			return errors.Storage("parquet write", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return errors.Storage("parquet flush", err)
	}
	if err := file.Close(); err != nil {
		return errors.Storage("failed to close parquet file", err)
	}
	return nil
}
