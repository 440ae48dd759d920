package http

import (
	"net/http"
	"time"

	"moneta/internal/core"
)

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	accounts, err := s.backend.AccountsWithBalance(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, accounts)
}

type indentedCategoryResponse struct {
	core.Category
	Depth int `json:"depth"`
}

// handleCategories returns the category forest flattened depth-first,
// each entry carrying its indentation depth for picker rendering.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	categories, err := s.backend.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	flat := core.FlattenCategories(categories)
	out := make([]indentedCategoryResponse, 0, len(flat))
	for _, c := range flat {
		out = append(out, indentedCategoryResponse{Category: c.Category, Depth: c.Depth})
	}

	writeJSON(w, http.StatusOK, out)
}

// handleCategorySpending returns per-category totals for the selected
// period as percentage shares, ordered for chart and legend display.
func (s *Server) handleCategorySpending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	filter, err := core.BuildFilter(selectionFromQuery(r), time.Now())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	kind := core.KindExpense
	if filter.Kind != nil {
		kind = *filter.Kind
	}

	// An unbounded preset still yields a chart; the range just spans
	// all recorded history.
	start := core.NewDate(1970, 1, 1)
	end := core.DateOf(time.Now())
	if filter.StartDate != nil {
		start = *filter.StartDate
	}
	if filter.EndDate != nil {
		end = *filter.EndDate
	}

	raw, err := s.backend.CategorySpending(r.Context(), start, end, kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, buildShareResponses(core.NormalizeShares(raw)))
}
