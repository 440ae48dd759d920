package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"moneta/internal/core"
)

// selectionFromQuery maps report query parameters onto a Selection. The
// values pass through unparsed; BuildFilter owns validation.
func selectionFromQuery(r *http.Request) core.Selection {
	q := r.URL.Query()
	return core.Selection{
		Preset:      core.DatePreset(q.Get("preset")),
		CustomStart: q.Get("start"),
		CustomEnd:   q.Get("end"),
		Kind:        q.Get("kind"),
		AccountID:   q.Get("account_id"),
		CategoryID:  q.Get("category_id"),
		SearchText:  q.Get("q"),
	}
}

// pathID extracts the numeric ID from a path like /api/transactions/42.
func pathID(path, prefix string) (int64, error) {
	raw := strings.TrimPrefix(path, prefix)
	raw = strings.TrimSuffix(raw, "/")
	return strconv.ParseInt(raw, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// validationStatus maps missing entities to 404, domain validation
// failures to 422, and everything else to 500.
func validationStatus(err error) int {
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound
	}
	for _, sentinel := range []error{
		core.ErrInvalidKind,
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrInvertedRange,
		core.ErrMissingDestination,
		core.ErrSelfTransfer,
		core.ErrInvalidAccountID,
		core.ErrInvalidCategoryID,
	} {
		if errors.Is(err, sentinel) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	w.WriteHeader(http.StatusMethodNotAllowed)
}
