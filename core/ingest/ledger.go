package ingest

import (
	"github.com/shopspring/decimal"

	"microcredit/core/types"
	"microcredit/internal/errors"
)

// LedgerColumns are the columns of a mobile-money ledger extract
func LedgerColumns() []string {
	return []string{
		types.ColLedgerOrigin,
		types.ColLedgerDest,
		types.ColLedgerDate,
		types.ColLedgerOrigBalance,
		types.ColLedgerDestBalance,
	}
}

// DecodeLedger parses ledger records. A missing or unparseable balance
// leaves that leg without a balance; an unparseable date fails the decode.
func DecodeLedger(raw *RawTable) ([]types.LedgerEntry, error) {
	idx, err := raw.Require("ledger", LedgerColumns()...)
	if err != nil {
		return nil, err
	}

	entries := make([]types.LedgerEntry, 0, len(raw.Records))
	for n, rec := range raw.Records {
		ts, err := ParseDate(Cell(rec, idx[2]))
		if err != nil {
			return nil, errors.Parsing("ledger", err).
				WithContext("row", n+1).
				WithContext("column", types.ColLedgerDate)
		}
		entries = append(entries, types.LedgerEntry{
			Originator:         Cell(rec, idx[0]),
			Destination:        Cell(rec, idx[1]),
			Timestamp:          ts,
			OriginatorBalance:  nullDecimal(Cell(rec, idx[3])),
			DestinationBalance: nullDecimal(Cell(rec, idx[4])),
		})
	}
	return entries, nil
}

func nullDecimal(v string) decimal.NullDecimal {
	if isMissing(v) {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// EncodeObservations renders standardized balances as SIM_NUMBER,
// DATE_OF_THE_DAY, balance records
func EncodeObservations(obs []types.BalanceObservation) *RawTable {
	out := &RawTable{
		Header:  []string{types.ColSIMNumber, types.ColDateOfTheDay, types.ColBalance},
		Records: make([][]string, 0, len(obs)),
	}
	for _, o := range obs {
		out.Records = append(out.Records, []string{o.SIMNumber, o.Date.Format("2006-01-02"), o.Balance.String()})
	}
	return out
}
