package worker

import (
	"context"
	"errors"
	"log/slog"

	"moneta/internal/amqp"
	"moneta/internal/cache"
	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/report"
)

// RefreshWorker reacts to transaction change messages by dropping cached
// report snapshots and recomputing the active report. Cached snapshots are
// all derived from transaction data, so any change invalidates the lot.
type RefreshWorker struct {
	orchestrator *report.Orchestrator
	snapshots    cache.Cache[*report.Snapshot]
}

func NewRefreshWorker(orchestrator *report.Orchestrator, snapshots cache.Cache[*report.Snapshot]) *RefreshWorker {
	return &RefreshWorker{
		orchestrator: orchestrator,
		snapshots:    snapshots,
	}
}

// HandleChangeMessage processes a single transaction change message from AMQP
func (w *RefreshWorker) HandleChangeMessage(ctx context.Context, msg *amqp.TransactionChangeMessage) error {
	slog.InfoContext(ctx, "Processing transaction change message",
		"id", msg.ID,
		"op", msg.Op)

	if w.snapshots != nil {
		w.snapshots.Purge()
	}

	return w.recompute(ctx)
}

// recompute reloads the report for the filter of the current snapshot,
// falling back to the unfiltered report when nothing has been loaded yet.
func (w *RefreshWorker) recompute(ctx context.Context) error {
	var filter core.Filter
	if current := w.orchestrator.Current(); current != nil {
		filter = current.Filter
	}

	snapshot, err := w.orchestrator.Load(ctx, filter)
	if err != nil {
		// A newer load superseded this refresh, which means the report
		// is being recomputed anyway.
		if errors.Is(err, report.ErrStaleLoad) {
			slog.InfoContext(ctx, "Refresh superseded by newer load")
			return nil
		}
		return err
	}

	if w.snapshots != nil {
		w.snapshots.Set(filter.Key(), snapshot)
	}

	slog.InfoContext(ctx, "Report refreshed",
		log.FieldSnapshotID, snapshot.ID,
		log.FieldGeneration, snapshot.Generation,
		"state", snapshot.State)

	return nil
}

// WarmStart computes the unfiltered report once so the first request after
// startup is served from cache.
func (w *RefreshWorker) WarmStart(ctx context.Context) error {
	return w.recompute(ctx)
}
