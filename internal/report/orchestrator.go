package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"moneta/internal/backend"
	"moneta/internal/core"
	"moneta/internal/log"
)

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// DefaultTrendMonths is the trend chart window.
const DefaultTrendMonths = 12

var (
	// ErrStaleLoad marks a load whose result arrived after a newer load
	// was triggered; its snapshot is discarded, never rendered.
	ErrStaleLoad = errors.New("load superseded by a newer filter")

	// ErrUnboundedPeriod marks the comparison section unavailable when
	// the filter has no date bounds to compare against.
	ErrUnboundedPeriod = errors.New("comparison requires a bounded period")
)

type (
	State string

	// Section is one independently fetched slice of a report. A failed
	// fetch surfaces here and must not block the other sections.
	Section[T any] struct {
		Data T
		Err  error
	}

	// Snapshot is one consistent report for a filter. A snapshot is
	// assembled atomically: the displayed report is only ever replaced
	// whole, never patched section by section from different loads.
	Snapshot struct {
		ID           string
		Generation   uint64
		Filter       core.Filter
		State        State
		Trends       Section[[]core.MonthlyTrend]
		Transactions Section[[]core.TransactionWithDetails]
		Accounts     Section[[]core.AccountWithBalance]
		Comparison   Section[Comparison]
		LoadedAt     time.Time
	}

	// Orchestrator coordinates the independent report reads and owns the
	// loading state transition. Load is idempotent per filter value, so
	// callers retry simply by re-triggering it.
	Orchestrator struct {
		svc         backend.DataService
		trendMonths int

		generation atomic.Uint64

		mu      sync.Mutex
		state   State
		current *Snapshot
	}
)

func (s Section[T]) OK() bool { return s.Err == nil }

func NewOrchestrator(svc backend.DataService, trendMonths int) *Orchestrator {
	if trendMonths <= 0 {
		trendMonths = DefaultTrendMonths
	}
	return &Orchestrator{
		svc:         svc,
		trendMonths: trendMonths,
		state:       StateIdle,
	}
}

// State returns the orchestrator's current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Current returns the last installed snapshot, or nil before the first
// successful load.
func (o *Orchestrator) Current() *Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Load fetches the trend series, the filtered transaction list, account
// balances, and the period comparison concurrently and assembles one
// snapshot. Sections fail independently; a snapshot is FAILED only when
// every section failed. If a newer Load is triggered before this one
// resolves, the result is discarded on arrival (last trigger wins) and
// the previously installed snapshot stays in place.
func (o *Orchestrator) Load(ctx context.Context, filter core.Filter) (*Snapshot, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("validate filter: %w", err)
	}

	gen := o.generation.Add(1)
	o.mu.Lock()
	o.state = StateLoading
	o.mu.Unlock()

	snap := &Snapshot{
		ID:         uuid.NewString(),
		Generation: gen,
		Filter:     filter,
	}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		snap.Trends.Data, snap.Trends.Err = o.svc.MonthlyTrends(ctx, o.trendMonths)
	}()

	go func() {
		defer wg.Done()
		snap.Transactions.Data, snap.Transactions.Err = o.svc.TransactionsFiltered(ctx, filter)
	}()

	go func() {
		defer wg.Done()
		snap.Accounts.Data, snap.Accounts.Err = o.svc.AccountsWithBalance(ctx)
	}()

	go func() {
		defer wg.Done()
		if filter.StartDate == nil || filter.EndDate == nil {
			snap.Comparison.Err = ErrUnboundedPeriod
			return
		}
		snap.Comparison.Data, snap.Comparison.Err = Compare(
			ctx, *filter.StartDate, *filter.EndDate, o.svc.IncomeExpenseSummary)
	}()

	wg.Wait()

	for _, err := range []error{snap.Trends.Err, snap.Transactions.Err, snap.Accounts.Err, snap.Comparison.Err} {
		if err != nil {
			slog.WarnContext(ctx, "Report section unavailable",
				log.FieldGeneration, gen,
				log.FieldFilter, filter.Key(),
				log.FieldError, err)
		}
	}

	failed := !snap.Trends.OK() && !snap.Transactions.OK() &&
		!snap.Accounts.OK() && !snap.Comparison.OK()
	if failed {
		snap.State = StateFailed
	} else {
		snap.State = StateReady
	}
	snap.LoadedAt = time.Now()

	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.generation.Load() {
		slog.InfoContext(ctx, "Discarding stale report snapshot",
			log.FieldGeneration, gen,
			"latest", o.generation.Load())
		return nil, ErrStaleLoad
	}

	o.state = snap.State
	o.current = snap

	slog.InfoContext(ctx, "Report snapshot installed",
		log.FieldSnapshotID, snap.ID,
		log.FieldGeneration, gen,
		"state", snap.State,
		log.FieldFilter, filter.Key(),
		"transactions", len(snap.Transactions.Data))

	return snap, nil
}
