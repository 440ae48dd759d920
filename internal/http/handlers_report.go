package http

import (
	"errors"
	"net/http"
	"time"

	"moneta/internal/core"
	"moneta/internal/report"
)

// handleReport serves the assembled report for the requested filter.
// Identical filters are served from the snapshot cache; refresh=1 forces
// a recompute.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	filter, err := core.BuildFilter(selectionFromQuery(r), time.Now())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	key := filter.Key()
	if r.URL.Query().Get("refresh") != "1" {
		if snap, ok := s.snapshots.Get(key); ok {
			writeJSON(w, http.StatusOK, buildReportResponse(snap, true))
			return
		}
	}

	snap, err := s.orchestrator.Load(r.Context(), filter)
	if err != nil {
		// A concurrent request with a different filter superseded this
		// load. The client simply retries with its current controls.
		if errors.Is(err, report.ErrStaleLoad) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, validationStatus(err), err)
		return
	}

	// Failed snapshots are rendered but never cached, so the next
	// request retries the fetches.
	if snap.State == report.StateReady {
		s.snapshots.Set(key, snap)
	}

	writeJSON(w, http.StatusOK, buildReportResponse(snap, false))
}
