package report

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"moneta/internal/core"
)

// SummaryFetcher is the external query boundary the comparison engine
// reads period summaries through.
type SummaryFetcher func(ctx context.Context, start, end core.Date) (core.PeriodSummary, error)

// Comparison holds current-vs-previous-period percentage deltas. The
// previous period always covers a contiguous range of identical length
// ending one day before the current period starts.
type Comparison struct {
	CurrentPeriod    core.PeriodSummary
	PreviousPeriod   core.PeriodSummary
	IncomeChangePct  float64
	ExpenseChangePct float64
	SavingsChangePct float64
}

// Compare fetches the current period and its derived previous period
// concurrently and computes percentage changes. If either fetch fails the
// whole comparison is unavailable; a failed side is never averaged in as
// zero.
func Compare(ctx context.Context, start, end core.Date, fetch SummaryFetcher) (Comparison, error) {
	prev, err := core.PreviousPeriod(start, end)
	if err != nil {
		return Comparison{}, err
	}

	var current, previous core.PeriodSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = fetch(gctx, start, end)
		if err != nil {
			return fmt.Errorf("fetch current period: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		previous, err = fetch(gctx, prev.Start, prev.End)
		if err != nil {
			return fmt.Errorf("fetch previous period: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}

	return Comparison{
		CurrentPeriod:    current,
		PreviousPeriod:   previous,
		IncomeChangePct:  percentChange(current.TotalIncome, previous.TotalIncome),
		ExpenseChangePct: percentChange(current.TotalExpense, previous.TotalExpense),
		SavingsChangePct: signedPercentChange(current.NetSavings, previous.NetSavings),
	}, nil
}

// percentChange reports a jump from zero as no change rather than an
// infinite or undefined value.
func percentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// signedPercentChange divides by the magnitude of the previous value.
// Net savings may be negative, and a signed denominator would invert the
// sign of the reported change.
func signedPercentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / math.Abs(previous) * 100
}
