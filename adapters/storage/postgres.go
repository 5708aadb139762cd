package storage

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"microcredit/core/types"
	"microcredit/internal/errors"
)

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// creditLineRecord is one row of the credit line table
type creditLineRecord struct {
	RunID          string              `db:"run_id"`
	SIMNumber      string              `db:"sim_number"`
	IDType         string              `db:"id_type"`
	IDNumber       string              `db:"id_number"`
	CustCategory   string              `db:"cust_category"`
	ProfileCode    string              `db:"profile_code"`
	WeightedScore  int                 `db:"weighted_score"`
	Segment        string              `db:"segment"`
	LoanType       string              `db:"loan_type"`
	Amount         decimal.Decimal     `db:"amount"`
	UpdatedAmount  decimal.NullDecimal `db:"updated_amount"`
	RepaymentLabel string              `db:"repayment_label"`
	BonusMalus     decimal.NullDecimal `db:"bonus_malus"`
	CreatedAt      time.Time           `db:"created_at"`
}

// creditLineRecords flattens a subscriber into one record per populated
// loan type
func creditLineRecords(runID string, s *types.Subscriber, now time.Time) []creditLineRecord {
	var out []creditLineRecord
	for _, loan := range types.LoanTypes {
		amt, ok := s.Loan(loan)
		if !ok {
			continue
		}
		rec := creditLineRecord{
			RunID:          runID,
			SIMNumber:      s.SIMNumber,
			IDType:         s.Identity.IDType,
			IDNumber:       s.Identity.IDNumber,
			CustCategory:   string(s.Category),
			ProfileCode:    s.ProfileCode,
			WeightedScore:  s.WeightedScore,
			Segment:        s.Segment.String(),
			LoanType:       string(loan),
			Amount:         amt,
			RepaymentLabel: string(s.RepaymentLabel),
			BonusMalus:     s.BonusMalus,
			CreatedAt:      now,
		}
		if upd, ok := s.UpdatedLoans[loan]; ok {
			rec.UpdatedAmount = decimal.NewNullDecimal(upd)
		}
		out = append(out, rec)
	}
	return out
}

// PostgresSink writes final credit lines to a Postgres table
type PostgresSink struct {
	db    *sqlx.DB
	table string
}

// OpenPostgres connects with a lib/pq DSN
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresSink, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.Storage("failed to connect to postgres", err)
	}
	sink, err := NewPostgresSink(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

// NewPostgresSink wraps an open connection
func NewPostgresSink(db *sqlx.DB, table string) (*PostgresSink, error) {
	if !identifier.MatchString(table) {
		return nil, errors.Newf(errors.TypeConfig, "invalid postgres table name %q", table)
	}
	return &PostgresSink{db: db, table: table}, nil
}

// EnsureSchema creates the credit line table when absent
func (p *PostgresSink) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id          UUID        NOT NULL,
			sim_number      TEXT        NOT NULL,
			id_type         TEXT        NOT NULL,
			id_number       TEXT        NOT NULL,
			cust_category   TEXT        NOT NULL,
			profile_code    TEXT        NOT NULL,
			weighted_score  INTEGER     NOT NULL,
			segment         TEXT        NOT NULL,
			loan_type       TEXT        NOT NULL,
			amount          NUMERIC     NOT NULL,
			updated_amount  NUMERIC,
			repayment_label TEXT        NOT NULL,
			bonus_malus     NUMERIC,
			created_at      TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (run_id, sim_number, loan_type)
		)`, p.table)
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return errors.Storage("failed to create credit line table", err)
	}
	return nil
}

// WriteCreditLines inserts every populated loan of t in one transaction and
// returns the number of records written
func (p *PostgresSink) WriteCreditLines(ctx context.Context, runID string, t *types.Table) (int, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			run_id, sim_number, id_type, id_number, cust_category,
			profile_code, weighted_score, segment, loan_type, amount,
			updated_amount, repayment_label, bonus_malus, created_at
		) VALUES (
			:run_id, :sim_number, :id_type, :id_number, :cust_category,
			:profile_code, :weighted_score, :segment, :loan_type, :amount,
			:updated_amount, :repayment_label, :bonus_malus, :created_at
		)`, p.table)

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Storage("failed to begin transaction", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	n := 0
	for _, row := range t.Rows {
		for _, rec := range creditLineRecords(runID, row, now) {
			if _, err := tx.NamedExecContext(ctx, query, rec); err != nil {
				return 0, errors.Storage(fmt.Sprintf("failed to insert credit line %s/%s", rec.SIMNumber, rec.LoanType), err)
			}
			n++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Storage("failed to commit credit lines", err)
	}
	return n, nil
}

// Close closes the connection
func (p *PostgresSink) Close() error {
	return p.db.Close()
}
