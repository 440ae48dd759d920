package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"moneta/internal/amqp"
	"moneta/internal/core"
	applog "moneta/internal/log"
)

type transactionRequest struct {
	Date        string  `json:"date"`
	Kind        string  `json:"type"`
	Amount      float64 `json:"amount"`
	AccountID   int64   `json:"account_id"`
	ToAccountID *int64  `json:"to_account_id,omitempty"`
	CategoryID  *int64  `json:"category_id,omitempty"`
	Memo        string  `json:"memo,omitempty"`
	PhotoPath   string  `json:"photo_path,omitempty"`
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Date:        date,
		Kind:        core.Kind(req.Kind),
		Amount:      req.Amount,
		AccountID:   req.AccountID,
		ToAccountID: req.ToAccountID,
		CategoryID:  req.CategoryID,
		Memo:        req.Memo,
		PhotoPath:   req.PhotoPath,
	}, nil
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/transactions/")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid transaction id"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.updateTransaction(w, r, id)
	case http.MethodDelete:
		s.deleteTransaction(w, r, id)
	default:
		methodNotAllowed(w, "PUT, DELETE")
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := core.BuildFilter(selectionFromQuery(r), time.Now())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	transactions, err := s.backend.TransactionsFiltered(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := tx.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	id, err := s.backend.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, validationStatus(err), err)
		return
	}

	s.afterMutation(r, id, amqp.OpCreated)
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request, id int64) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	tx.ID = id
	if err := tx.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	if err := s.backend.UpdateTransaction(r.Context(), tx); err != nil {
		writeError(w, validationStatus(err), err)
		return
	}

	s.afterMutation(r, id, amqp.OpUpdated)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request, id int64) {
	if err := s.backend.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, validationStatus(err), err)
		return
	}

	s.afterMutation(r, id, amqp.OpDeleted)
	w.WriteHeader(http.StatusNoContent)
}

// afterMutation drops every cached snapshot and notifies downstream
// consumers. Publish failures are logged, not surfaced: the mutation
// itself already committed.
func (s *Server) afterMutation(r *http.Request, id int64, op string) {
	s.snapshots.Purge()

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionChange(r.Context(), id, op); err != nil {
		slog.ErrorContext(r.Context(), "Failed to publish transaction change",
			applog.FieldTransactionID, id,
			"op", op,
			applog.FieldError, err)
	}
}
