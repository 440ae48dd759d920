package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"moneta/internal/core"
	"moneta/internal/export"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, ok := s.exportFilter(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", exportFilename("csv"))

	if err := s.exporter.TransactionsCSV(r.Context(), filter, w); err != nil {
		s.exportError(w, err)
	}
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	filter, ok := s.exportFilter(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", exportFilename("json"))

	if err := s.exporter.TransactionsJSON(r.Context(), filter, w); err != nil {
		s.exportError(w, err)
	}
}

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", exportFilename("backup.json"))

	if err := s.exporter.FullBackup(r.Context(), w); err != nil {
		s.exportError(w, err)
	}
}

func (s *Server) exportFilter(w http.ResponseWriter, r *http.Request) (core.Filter, bool) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return core.Filter{}, false
	}

	filter, err := core.BuildFilter(selectionFromQuery(r), time.Now())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return core.Filter{}, false
	}
	return filter, true
}

// exportError maps export failures that happen before any byte was
// written. Mid-stream failures can only be logged by the exporter.
func (s *Server) exportError(w http.ResponseWriter, err error) {
	if errors.Is(err, export.ErrRowLimitExceeded) {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	writeError(w, validationStatus(err), err)
}

func exportFilename(ext string) string {
	return fmt.Sprintf("attachment; filename=transactions-%s.%s",
		time.Now().Format("2006-01-02"), ext)
}
