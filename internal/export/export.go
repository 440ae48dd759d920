package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"moneta/internal/backend"
	"moneta/internal/core"
)

// BackupVersion identifies the backup document layout.
const BackupVersion = 1

// ErrRowLimitExceeded is returned when an export would emit more rows
// than the configured limit.
var ErrRowLimitExceeded = fmt.Errorf("export row limit exceeded")

// csvHeader is the fixed column order of transaction CSV exports.
var csvHeader = []string{"Date", "Type", "Account", "To Account", "Category", "Amount", "Memo"}

type (
	// Exporter renders filtered transaction data into portable formats.
	Exporter struct {
		svc      backend.DataService
		rowLimit int
	}

	// Backup is a full data dump suitable for restore elsewhere.
	Backup struct {
		Version      int                           `json:"version"`
		ExportedAt   time.Time                     `json:"exported_at"`
		Accounts     []core.AccountWithBalance     `json:"accounts"`
		Categories   []core.Category               `json:"categories"`
		Transactions []core.TransactionWithDetails `json:"transactions"`
	}

	transactionRecord struct {
		ID        int64   `json:"id"`
		Date      string  `json:"date"`
		Kind      string  `json:"type"`
		Account   string  `json:"account"`
		ToAccount string  `json:"to_account,omitempty"`
		Category  string  `json:"category,omitempty"`
		Amount    float64 `json:"amount"`
		Memo      string  `json:"memo,omitempty"`
	}
)

func NewExporter(svc backend.DataService, rowLimit int) *Exporter {
	return &Exporter{svc: svc, rowLimit: rowLimit}
}

// TransactionsCSV writes the filtered transactions as CSV.
func (e *Exporter) TransactionsCSV(ctx context.Context, filter core.Filter, w io.Writer) error {
	transactions, err := e.fetch(ctx, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for _, tx := range transactions {
		record := []string{
			tx.Date.String(),
			string(tx.Kind),
			tx.AccountName,
			tx.ToAccountName,
			tx.CategoryName,
			strconv.FormatFloat(tx.Amount, 'f', 2, 64),
			tx.Memo,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write CSV record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}

	slog.InfoContext(ctx, "Exported transactions as CSV",
		"rows", len(transactions),
		"filter", filter.Key())

	return nil
}

// TransactionsJSON writes the filtered transactions as a JSON array.
func (e *Exporter) TransactionsJSON(ctx context.Context, filter core.Filter, w io.Writer) error {
	transactions, err := e.fetch(ctx, filter)
	if err != nil {
		return err
	}

	records := make([]transactionRecord, 0, len(transactions))
	for _, tx := range transactions {
		records = append(records, transactionRecord{
			ID:        tx.ID,
			Date:      tx.Date.String(),
			Kind:      string(tx.Kind),
			Account:   tx.AccountName,
			ToAccount: tx.ToAccountName,
			Category:  tx.CategoryName,
			Amount:    tx.Amount,
			Memo:      tx.Memo,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode JSON export: %w", err)
	}

	slog.InfoContext(ctx, "Exported transactions as JSON",
		"rows", len(records),
		"filter", filter.Key())

	return nil
}

// FullBackup writes every account, category, and transaction as one JSON
// document. The backup ignores filters on purpose.
func (e *Exporter) FullBackup(ctx context.Context, w io.Writer) error {
	accounts, err := e.svc.AccountsWithBalance(ctx)
	if err != nil {
		return fmt.Errorf("fetch accounts: %w", err)
	}

	categories, err := e.svc.Categories(ctx)
	if err != nil {
		return fmt.Errorf("fetch categories: %w", err)
	}

	transactions, err := e.fetch(ctx, core.Filter{})
	if err != nil {
		return err
	}

	backup := Backup{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		Accounts:     accounts,
		Categories:   categories,
		Transactions: transactions,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(backup); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}

	slog.InfoContext(ctx, "Exported full backup",
		"accounts", len(accounts),
		"categories", len(categories),
		"transactions", len(transactions))

	return nil
}

func (e *Exporter) fetch(ctx context.Context, filter core.Filter) ([]core.TransactionWithDetails, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("validate filter: %w", err)
	}

	transactions, err := e.svc.TransactionsFiltered(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	if e.rowLimit > 0 && len(transactions) > e.rowLimit {
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrRowLimitExceeded, len(transactions), e.rowLimit)
	}

	return transactions, nil
}
