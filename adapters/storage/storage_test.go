package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"microcredit/core/ingest"
	"microcredit/core/types"
	"microcredit/internal/errors"
)

func testStores(t *testing.T) map[string]Store {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{"file": fs, "memory": NewMemoryStore()}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetLatest(ctx)
			assert.True(t, errors.IsType(err, errors.TypeNotFound))

			for i, status := range []RunStatus{StatusSucceeded, StatusFailed, StatusSucceeded} {
				run := &RunRecord{
					Status:    status,
					StartedAt: base.Add(time.Duration(i) * time.Hour),
					Stages:    map[string]int{"filter": 10 * (i + 1)},
				}
				require.NoError(t, store.Save(ctx, run))
				require.NotEmpty(t, run.ID)
			}

			all, err := store.List(ctx, nil)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, 30, all[0].Stages["filter"], "newest first")

			latest, err := store.GetLatest(ctx)
			require.NoError(t, err)
			assert.Equal(t, all[0].ID, latest.ID)

			ok, err := store.List(ctx, &ListFilter{Status: StatusSucceeded, Offset: 1})
			require.NoError(t, err)
			require.Len(t, ok, 1)
			assert.Equal(t, 10, ok[0].Stages["filter"])

			got, err := store.Get(ctx, all[1].ID)
			require.NoError(t, err)
			assert.Equal(t, StatusFailed, got.Status)

			require.NoError(t, store.Delete(ctx, got.ID))
			_, err = store.Get(ctx, got.ID)
			assert.True(t, errors.IsType(err, errors.TypeNotFound))
			assert.True(t, errors.IsType(store.Delete(ctx, got.ID), errors.TypeNotFound))
			require.NoError(t, store.Close())
		})
	}
}

func TestFileStoreRejectsPathLikeIDs(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	_, err = fs.Get(context.Background(), "../../etc/passwd")
	assert.True(t, errors.IsType(err, errors.TypeInput))
}

func TestStoreFactory(t *testing.T) {
	s, err := StoreFactory(BackendFile, map[string]string{"path": t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = StoreFactory("s3", nil)
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}

func TestCSVRoundTrip(t *testing.T) {
	raw := &ingest.RawTable{
		Header:  []string{"SIM_NUMBER", "REGION"},
		Records: [][]string{{"s1", "North, upper"}, {"s2", ""}},
	}
	path := filepath.Join(t.TempDir(), "out", "table.csv")
	require.NoError(t, WriteCSV(path, raw))

	back, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, raw, back)
}

func TestDecodeCSVStripsBOMAndEmpty(t *testing.T) {
	raw, err := DecodeCSV(strings.NewReader("\xef\xbb\xbfSIM_NUMBER,age\ns1,30\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"SIM_NUMBER", "age"}, raw.Header)

	raw, err = DecodeCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, raw.Header)

	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, &ingest.RawTable{Header: []string{"a"}, Records: [][]string{{"1"}}}))
	assert.Equal(t, "a\n1\n", buf.String())

	_, err = ReadCSV(filepath.Join(t.TempDir(), "none.csv"))
	assert.True(t, errors.IsType(err, errors.TypeInput))
}

func finalRow() *types.Subscriber {
	s := &types.Subscriber{
		SIMNumber:      "s1",
		Identity:       types.IdentityKey{IDType: "NID", IDNumber: "42"},
		Category:       types.CustomerIndividual,
		ProfileCode:    "33333",
		WeightedScore:  45,
		Segment:        types.SegmentMedium,
		RepaymentLabel: types.LabelStrongAbilityToBorrow,
		BalanceFirst:   decimal.NewNullDecimal(decimal.NewFromInt(-5)),
		BonusMalus:     decimal.NewNullDecimal(decimal.NewFromInt(54)),
	}
	s.SetLoan(types.LoanNano, decimal.RequireFromString("32.5"))
	s.SetLoan(types.LoanAdvancedCredit, decimal.NewFromInt(300))
	s.UpdatedLoans = map[types.LoanType]decimal.Decimal{
		types.LoanNano:           decimal.RequireFromString("86.5"),
		types.LoanAdvancedCredit: decimal.NewFromInt(354),
	}
	return s
}

func TestWriteParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final.parquet")
	require.NoError(t, WriteParquet(path, types.NewTable(nil, []*types.Subscriber{finalRow()})))

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(creditLineRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	require.Equal(t, int64(1), pr.GetNumRows())
	rows := make([]creditLineRow, 1)
	require.NoError(t, pr.Read(&rows))
	assert.Equal(t, "s1", rows[0].SIMNumber)
	assert.Equal(t, "32.5", rows[0].NanoLoan)
	assert.Equal(t, "", rows[0].MacroLoan)
	assert.Equal(t, "86.5", rows[0].NanoUpdated)
	assert.Equal(t, "", rows[0].BalanceSecond)
	assert.Equal(t, int32(45), rows[0].WeightedScore)
}

func TestCreditLineRecords(t *testing.T) {
	now := time.Now()
	recs := creditLineRecords("run-1", finalRow(), now)
	require.Len(t, recs, 2)
	assert.Equal(t, string(types.LoanNano), recs[0].LoanType)
	assert.Equal(t, string(types.LoanAdvancedCredit), recs[1].LoanType)
	assert.True(t, recs[1].UpdatedAmount.Decimal.Equal(decimal.NewFromInt(354)))
	assert.Equal(t, "Medium", recs[0].Segment)
}

func TestNewPostgresSinkValidatesTable(t *testing.T) {
	_, err := NewPostgresSink(nil, "credit_lines; DROP TABLE x")
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}

// TestPostgresSink runs against a live database when
// MICROCREDIT_TEST_POSTGRES_DSN is set
func TestPostgresSink(t *testing.T) {
	dsn := os.Getenv("MICROCREDIT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MICROCREDIT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	sink, err := OpenPostgres(ctx, dsn, "credit_lines_test")
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.EnsureSchema(ctx))
	n, err := sink.WriteCreditLines(ctx, "7d9f3c2e-8a41-4b6e-9f0a-1c2d3e4f5a6b", types.NewTable(nil, []*types.Subscriber{finalRow()}))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = sink.db.ExecContext(ctx, "DROP TABLE credit_lines_test")
	require.NoError(t, err)
}
