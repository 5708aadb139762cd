package bonusmalus

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microcredit/core/allocation"
	"microcredit/core/types"
	"microcredit/internal/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 30, 0, 0, time.UTC)
}

var november = types.ReportingPeriod{Year: 2024, Month: time.November}

func TestExtractBalancesKeepsMidAndMonthEnd(t *testing.T) {
	entries := []types.LedgerEntry{
		{Originator: "A", Destination: "B", Timestamp: day(2024, 10, 15, 9), OriginatorBalance: nd("10"), DestinationBalance: nd("100")},
		{Originator: "A", Destination: "C", Timestamp: day(2024, 10, 15, 18), OriginatorBalance: nd("20")},
		{Originator: "A", Destination: "B", Timestamp: day(2024, 10, 31, 12), OriginatorBalance: nd("-4"), DestinationBalance: nd("50")},
		{Originator: "A", Destination: "B", Timestamp: day(2024, 10, 30, 12), OriginatorBalance: nd("999"), DestinationBalance: nd("999")},
		{Originator: "C", Destination: "A", Timestamp: day(2024, 10, 16, 12), OriginatorBalance: nd("999"), DestinationBalance: nd("999")},
	}

	got, err := ExtractBalances(context.Background(), entries, november, ExtractOptions{})
	require.NoError(t, err)

	snaps := got.Snapshot()
	require.Len(t, snaps, 2, "C only has a missing balance on a kept day")

	a := snaps["A"]
	assert.True(t, a.First.Decimal.Equal(dec("15")), "same-day balances are averaged")
	assert.True(t, a.Second.Decimal.Equal(dec("-4")))

	b := snaps["B"]
	assert.True(t, b.First.Decimal.Equal(dec("100")))
	assert.True(t, b.Second.Decimal.Equal(dec("50")))

	require.Len(t, got.Observations, 4)
	assert.Equal(t, "A", got.Observations[0].SIMNumber)
	assert.Equal(t, november.MidMonth(), got.Observations[0].Date)
	assert.Equal(t, november.EndOfMonth(), got.Observations[1].Date)
}

func TestExtractBalancesAveragesAcrossMonths(t *testing.T) {
	entries := []types.LedgerEntry{
		{Originator: "A", Timestamp: day(2024, 9, 15, 1), OriginatorBalance: nd("10")},
		{Originator: "A", Timestamp: day(2024, 9, 15, 2), OriginatorBalance: nd("30")},
		{Originator: "A", Timestamp: day(2024, 10, 15, 1), OriginatorBalance: nd("40")},
		{Originator: "A", Timestamp: day(2024, 2, 29, 1), OriginatorBalance: nd("7")},
	}
	got, err := ExtractBalances(context.Background(), entries, november, ExtractOptions{})
	require.NoError(t, err)

	a := got.Snapshot()["A"]
	// mean of the daily means 20 and 40
	assert.True(t, a.First.Decimal.Equal(dec("30")))
	assert.True(t, a.Second.Decimal.Equal(dec("7")), "leap day is a last day")
}

func TestExtractBalancesRestrictsPopulation(t *testing.T) {
	entries := []types.LedgerEntry{
		{Originator: "A", Destination: "Z", Timestamp: day(2024, 10, 15, 1), OriginatorBalance: nd("1"), DestinationBalance: nd("2")},
	}
	got, err := ExtractBalances(context.Background(), entries, november, ExtractOptions{
		Population: map[string]struct{}{"A": {}},
	})
	require.NoError(t, err)
	require.Len(t, got.Snapshots, 1)
	assert.Equal(t, "A", got.Snapshots[0].SIMNumber)
	assert.False(t, got.Snapshots[0].Second.Valid)
}

func TestExtractBalancesIsPartitionInvariant(t *testing.T) {
	var entries []types.LedgerEntry
	for i := 0; i < 500; i++ {
		d := 15
		if i%3 == 0 {
			d = 31
		}
		entries = append(entries, types.LedgerEntry{
			Originator:         fmt.Sprintf("S%02d", i%17),
			Destination:        fmt.Sprintf("S%02d", (i*7)%17),
			Timestamp:          day(2024, 10, d, i%24),
			OriginatorBalance:  decimal.NewNullDecimal(decimal.New(int64(i*37%1000-300), -2)),
			DestinationBalance: decimal.NewNullDecimal(decimal.New(int64(i*11%700), -1)),
		})
	}

	ref, err := ExtractBalances(context.Background(), entries, november, ExtractOptions{Workers: 1})
	require.NoError(t, err)
	for _, w := range []int{2, 3, 8, 1000} {
		got, err := ExtractBalances(context.Background(), entries, november, ExtractOptions{Workers: w})
		require.NoError(t, err)
		require.Len(t, got.Observations, len(ref.Observations))
		for i := range ref.Observations {
			assert.Equal(t, ref.Observations[i].SIMNumber, got.Observations[i].SIMNumber)
			assert.True(t, ref.Observations[i].Balance.Equal(got.Observations[i].Balance), "workers=%d", w)
		}
	}
}

func TestExtractBalancesSmallLedgers(t *testing.T) {
	for _, n := range []int{0, 1, 5, 9} {
		var entries []types.LedgerEntry
		for i := 0; i < n; i++ {
			entries = append(entries, types.LedgerEntry{
				Originator:        fmt.Sprintf("S%d", i%3),
				Timestamp:         day(2024, 10, 15, i),
				OriginatorBalance: decimal.NewNullDecimal(decimal.NewFromInt(int64(i * 10))),
			})
		}
		ref, err := ExtractBalances(context.Background(), entries, november, ExtractOptions{Workers: 1})
		require.NoError(t, err)

		for _, w := range []int{4, 8} {
			got, err := ExtractBalances(context.Background(), entries, november, ExtractOptions{Workers: w})
			require.NoError(t, err, "n=%d workers=%d", n, w)
			require.Len(t, got.Observations, len(ref.Observations), "n=%d workers=%d", n, w)
			for i := range ref.Observations {
				assert.Equal(t, ref.Observations[i].SIMNumber, got.Observations[i].SIMNumber)
				assert.True(t, ref.Observations[i].Balance.Equal(got.Observations[i].Balance), "n=%d workers=%d", n, w)
			}
		}
	}
}

func TestExtractBalancesHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ExtractBalances(ctx, []types.LedgerEntry{{Originator: "A"}}, november, ExtractOptions{Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassify(t *testing.T) {
	none := decimal.NullDecimal{}
	split := DefaultRates()
	split.SplitNegativeSecond = true

	tests := []struct {
		name          string
		rates         Rates
		first, second decimal.NullDecimal
		label         types.RepaymentLabel
		rate          string
	}{
		{"missing first", DefaultRates(), none, nd("5"), types.LabelUncertain, "0"},
		{"missing second", DefaultRates(), nd("5"), none, types.LabelUncertain, "0"},
		{"negative first", DefaultRates(), nd("-5"), nd("10"), types.LabelStrongAbilityToBorrow, "1.2"},
		{"zero second", DefaultRates(), nd("5"), nd("0"), types.LabelStrongAbilityToBorrow, "1.2"},
		{"both positive", DefaultRates(), nd("5"), nd("1"), types.LabelStrongRepaymentCapacity, "0.8"},
		{"split negative second", split, nd("5"), nd("-1"), types.LabelAbilityToBorrow, "1.1"},
		{"split keeps negative first", split, nd("-5"), nd("-1"), types.LabelStrongAbilityToBorrow, "1.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, rate := tt.rates.Classify(tt.first, tt.second)
			assert.Equal(t, tt.label, label)
			assert.True(t, rate.Equal(dec(tt.rate)), "rate %s", rate)
		})
	}
}

func finalTable(rows ...*types.Subscriber) *types.Table {
	return types.NewTable(append([]string{types.ColSIMNumber}, types.LoanColumns()...), rows)
}

func TestApplyStrongAbilityScenario(t *testing.T) {
	row := &types.Subscriber{SIMNumber: "A", Category: types.CustomerIndividual}
	row.SetLoan(types.LoanNano, dec("32.5"))
	row.SetLoan(types.LoanAdvancedCredit, dec("300"))

	e := NewEngine(DefaultRates(), allocation.DefaultConfig())
	out, sum, err := e.Apply(finalTable(row), map[string]types.BalanceSnapshot{
		"A": {SIMNumber: "A", First: nd("-5"), Second: nd("10")},
	})
	require.NoError(t, err)

	got := out.Rows[0]
	assert.Equal(t, types.LabelStrongAbilityToBorrow, got.RepaymentLabel)
	assert.True(t, got.BonusMalus.Decimal.Equal(dec("54")), "45 x 1.20, got %s", got.BonusMalus.Decimal)
	assert.True(t, got.UpdatedLoans[types.LoanNano].Equal(dec("86.5")))
	assert.Equal(t, 1, sum.Labels[types.LabelStrongAbilityToBorrow])
	assert.Nil(t, row.UpdatedLoans, "input rows are not modified")
}

func TestApplyRoundTrip(t *testing.T) {
	cfg := allocation.DefaultConfig()
	alloc, err := allocation.New(cfg)
	require.NoError(t, err)

	codes := []string{"11111", "33333", "54321", "55555", "12345"}
	cats := []types.CustomerCategory{types.CustomerIndividual, types.CustomerBusiness}
	balances := [][2]string{{"-5", "10"}, {"5", "10"}, {"5", "-1"}, {"0", "0"}}

	var rows []*types.Subscriber
	snaps := make(map[string]types.BalanceSnapshot)
	for i, code := range codes {
		for j, cat := range cats {
			sim := fmt.Sprintf("S%d%d", i, j)
			line, err := alloc.Allocate(code, cat)
			require.NoError(t, err)
			row := &types.Subscriber{SIMNumber: sim, Category: cat, Loans: line.Amounts}
			rows = append(rows, row)
			b := balances[(i+j)%len(balances)]
			snaps[sim] = types.BalanceSnapshot{SIMNumber: sim, First: nd(b[0]), Second: nd(b[1])}
		}
	}
	rows = append(rows, &types.Subscriber{SIMNumber: "orphan", Loans: map[types.LoanType]decimal.Decimal{types.LoanMacro: dec("100")}})

	for _, split := range []bool{false, true} {
		rates := DefaultRates()
		rates.SplitNegativeSecond = split
		out, sum, err := NewEngine(rates, cfg).Apply(finalTable(rows...), snaps)
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Unmatched)

		for _, r := range out.Rows {
			require.True(t, r.BonusMalus.Valid)
			require.Len(t, r.UpdatedLoans, len(r.Loans))
			for loan, orig := range r.Loans {
				assert.True(t, r.UpdatedLoans[loan].Sub(orig).Equal(r.BonusMalus.Decimal), "%s %s", r.SIMNumber, loan)
			}
		}
		orphan := out.Rows[len(out.Rows)-1]
		assert.Equal(t, types.LabelUncertain, orphan.RepaymentLabel)
		assert.True(t, orphan.BonusMalus.Decimal.IsZero())
	}
}

func TestMaxLoanPriority(t *testing.T) {
	e := NewEngine(DefaultRates(), allocation.DefaultConfig())

	row := &types.Subscriber{}
	assert.True(t, e.MaxLoan(row).IsZero())

	row.SetLoan(types.LoanCashRollerOver, dec("120"))
	assert.True(t, e.MaxLoan(row).Equal(dec("500")))

	row.SetLoan(types.LoanMacro, dec("30"))
	assert.True(t, e.MaxLoan(row).Equal(dec("250")), "Macro outranks Cash_Roller_Over")
}

func TestApplyRequiresLoanColumns(t *testing.T) {
	_, _, err := NewEngine(DefaultRates(), allocation.DefaultConfig()).Apply(types.NewTable(nil, nil), nil)
	assert.True(t, errors.IsType(err, errors.TypeMissingColumn))
}

func TestDefaultPeriodIsPreviousMonth(t *testing.T) {
	assert.Equal(t, november, DefaultPeriod(time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, types.ReportingPeriod{Year: 2023, Month: time.December}, DefaultPeriod(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
}
