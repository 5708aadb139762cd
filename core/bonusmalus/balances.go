// Package bonusmalus adjusts credit lines from the balances a subscriber
// holds in the middle and at the end of the month.
package bonusmalus

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"microcredit/core/types"
)

// ExtractOptions tune balance extraction
type ExtractOptions struct {
	// Workers is the number of ledger partitions aggregated in parallel
	Workers int

	// Population restricts the output to these SIM numbers when non-nil
	Population map[string]struct{}
}

// Balances is the result of ExtractBalances
type Balances struct {
	// Observations are the standardized observations, one per SIM and
	// canonical date, sorted by SIM then date
	Observations []types.BalanceObservation

	// Snapshots pair the two canonical balances per SIM, sorted by SIM
	Snapshots []types.BalanceSnapshot
}

// Snapshot returns the snapshots keyed by SIM number
func (b *Balances) Snapshot() map[string]types.BalanceSnapshot {
	out := make(map[string]types.BalanceSnapshot, len(b.Snapshots))
	for _, s := range b.Snapshots {
		out[s.SIMNumber] = s
	}
	return out
}

type dayKey struct {
	sim  string
	date time.Time
}

type acc struct {
	sum   decimal.Decimal
	count int64
}

func (a acc) add(v decimal.Decimal) acc {
	return acc{sum: a.sum.Add(v), count: a.count + 1}
}

func (a acc) merge(o acc) acc {
	return acc{sum: a.sum.Add(o.sum), count: a.count + o.count}
}

func (a acc) mean() decimal.Decimal {
	return a.sum.Div(decimal.NewFromInt(a.count))
}

type partial map[dayKey]acc

// ExtractBalances reduces ledger entries to mid-month and end-of-month
// balances. Both legs of an entry are observations of their party. Only
// day 15 and the last day of the entry's month are kept; same-day
// observations are averaged, then every day 15 maps onto the mid-month
// date of period and every last day onto its end-of-month date, where they
// are averaged again. Partitioning never changes the result since partial
// sums merge exactly.
func ExtractBalances(ctx context.Context, entries []types.LedgerEntry, period types.ReportingPeriod, opts ExtractOptions) (*Balances, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(entries) && len(entries) > 0 {
		workers = len(entries)
	}

	chunk := (len(entries) + workers - 1) / workers
	if chunk > 0 {
		// drop trailing partitions that would start past the end
		workers = (len(entries) + chunk - 1) / chunk
	}
	parts := make([]partial, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(entries) {
			hi = len(entries)
		}
		g.Go(func() error {
			p, err := aggregate(ctx, entries[lo:hi], opts.Population)
			parts[w] = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	days := make(partial)
	for _, p := range parts {
		for k, a := range p {
			days[k] = days[k].merge(a)
		}
	}
	return standardize(days, period), nil
}

func aggregate(ctx context.Context, entries []types.LedgerEntry, population map[string]struct{}) (partial, error) {
	p := make(partial)
	observe := func(sim string, ts time.Time, bal decimal.NullDecimal) {
		if !bal.Valid || sim == "" {
			return
		}
		if population != nil {
			if _, ok := population[sim]; !ok {
				return
			}
		}
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		if day.Day() != 15 && day.Day() != types.DaysInMonth(day) {
			return
		}
		k := dayKey{sim: sim, date: day}
		p[k] = p[k].add(bal.Decimal)
	}

	for i, e := range entries {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		observe(e.Originator, e.Timestamp, e.OriginatorBalance)
		observe(e.Destination, e.Timestamp, e.DestinationBalance)
	}
	return p, nil
}

type bucketKey struct {
	sim string
	mid bool
}

func standardize(days partial, period types.ReportingPeriod) *Balances {
	buckets := make(map[bucketKey]acc)
	for k, a := range days {
		// day 15 is never a month's last day
		bk := bucketKey{sim: k.sim, mid: k.date.Day() == 15}
		buckets[bk] = buckets[bk].add(a.mean())
	}

	out := &Balances{Observations: make([]types.BalanceObservation, 0, len(buckets))}
	snaps := make(map[string]*types.BalanceSnapshot)
	for k, a := range buckets {
		v := a.mean()
		date := period.EndOfMonth()
		if k.mid {
			date = period.MidMonth()
		}
		out.Observations = append(out.Observations, types.BalanceObservation{SIMNumber: k.sim, Date: date, Balance: v})

		s, ok := snaps[k.sim]
		if !ok {
			s = &types.BalanceSnapshot{SIMNumber: k.sim}
			snaps[k.sim] = s
		}
		if k.mid {
			s.First = decimal.NewNullDecimal(v)
		} else {
			s.Second = decimal.NewNullDecimal(v)
		}
	}

	sort.Slice(out.Observations, func(i, j int) bool {
		a, b := out.Observations[i], out.Observations[j]
		if a.SIMNumber != b.SIMNumber {
			return a.SIMNumber < b.SIMNumber
		}
		return a.Date.Before(b.Date)
	})
	out.Snapshots = make([]types.BalanceSnapshot, 0, len(snaps))
	for _, s := range snaps {
		out.Snapshots = append(out.Snapshots, *s)
	}
	sort.Slice(out.Snapshots, func(i, j int) bool {
		return out.Snapshots[i].SIMNumber < out.Snapshots[j].SIMNumber
	})
	return out
}

// PopulationOf returns the SIM numbers of a table as a set
func PopulationOf(t *types.Table) map[string]struct{} {
	out := make(map[string]struct{}, t.Len())
	for _, r := range t.Rows {
		out[r.SIMNumber] = struct{}{}
	}
	return out
}

// DefaultPeriod is the month preceding ref
func DefaultPeriod(ref time.Time) types.ReportingPeriod {
	prev := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return types.ReportingPeriod{Year: prev.Year(), Month: prev.Month()}
}
