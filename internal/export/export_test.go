package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"moneta/internal/core"
	"moneta/internal/memory"
)

func ptr(v int64) *int64 { return &v }

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore()

	s.AddAccount(core.Account{ID: 1, Name: "Checking", InitialBalance: 500, Currency: "EUR"})
	s.AddAccount(core.Account{ID: 2, Name: "Savings", InitialBalance: 1000, Currency: "EUR"})

	s.AddCategory(core.Category{ID: 10, Name: "Food", Kind: core.KindExpense})
	s.AddCategory(core.Category{ID: 12, Name: "Salary", Kind: core.KindIncome})

	ctx := context.Background()
	txs := []core.Transaction{
		{Date: core.NewDate(2024, 6, 3), Kind: core.KindIncome, Amount: 2000, AccountID: 1, CategoryID: ptr(12), Memo: "june salary"},
		{Date: core.NewDate(2024, 6, 5), Kind: core.KindExpense, Amount: 80.5, AccountID: 1, CategoryID: ptr(10), Memo: "supermarket"},
		{Date: core.NewDate(2024, 6, 10), Kind: core.KindTransfer, Amount: 300, AccountID: 1, ToAccountID: ptr(2)},
	}
	for _, tx := range txs {
		if _, err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("seed transaction: %v", err)
		}
	}
	return s
}

func TestTransactionsCSV(t *testing.T) {
	e := NewExporter(seeded(t), 100)

	var buf bytes.Buffer
	if err := e.TransactionsCSV(context.Background(), core.Filter{}, &buf); err != nil {
		t.Fatalf("TransactionsCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse exported CSV: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("got %d CSV rows, want header + 3", len(records))
	}
	wantHeader := "Date,Type,Account,To Account,Category,Amount,Memo"
	if got := strings.Join(records[0], ","); got != wantHeader {
		t.Errorf("header = %q, want %q", got, wantHeader)
	}

	// Newest first, so the transfer row comes first.
	transfer := records[1]
	if transfer[1] != "TRANSFER" || transfer[2] != "Checking" || transfer[3] != "Savings" {
		t.Errorf("transfer row = %v", transfer)
	}
	if transfer[5] != "300.00" {
		t.Errorf("transfer amount = %q, want 300.00", transfer[5])
	}

	expense := records[2]
	if expense[4] != "Food" || expense[5] != "80.50" {
		t.Errorf("expense row = %v", expense)
	}
}

func TestTransactionsCSV_RespectsFilter(t *testing.T) {
	e := NewExporter(seeded(t), 100)

	kind := core.KindIncome
	var buf bytes.Buffer
	if err := e.TransactionsCSV(context.Background(), core.Filter{Kind: &kind}, &buf); err != nil {
		t.Fatalf("TransactionsCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse exported CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d CSV rows, want header + 1 income row", len(records))
	}
	if records[1][1] != "INCOME" {
		t.Errorf("row kind = %q, want INCOME", records[1][1])
	}
}

func TestTransactionsCSV_RowLimit(t *testing.T) {
	e := NewExporter(seeded(t), 2)

	var buf bytes.Buffer
	err := e.TransactionsCSV(context.Background(), core.Filter{}, &buf)
	if !errors.Is(err, ErrRowLimitExceeded) {
		t.Errorf("TransactionsCSV() error = %v, want ErrRowLimitExceeded", err)
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written when the limit is exceeded")
	}
}

func TestTransactionsCSV_InvalidFilter(t *testing.T) {
	e := NewExporter(seeded(t), 100)

	start := core.NewDate(2024, 6, 30)
	end := core.NewDate(2024, 6, 1)
	var buf bytes.Buffer
	err := e.TransactionsCSV(context.Background(), core.Filter{StartDate: &start, EndDate: &end}, &buf)
	if !errors.Is(err, core.ErrInvertedRange) {
		t.Errorf("TransactionsCSV() error = %v, want ErrInvertedRange", err)
	}
}

func TestTransactionsJSON(t *testing.T) {
	e := NewExporter(seeded(t), 100)

	var buf bytes.Buffer
	if err := e.TransactionsJSON(context.Background(), core.Filter{}, &buf); err != nil {
		t.Fatalf("TransactionsJSON() error = %v", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("parse exported JSON: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0]["type"] != "TRANSFER" {
		t.Errorf("first record type = %v, want TRANSFER", records[0]["type"])
	}
	if records[0]["date"] != "2024-06-10" {
		t.Errorf("first record date = %v, want 2024-06-10", records[0]["date"])
	}
}

func TestFullBackup(t *testing.T) {
	e := NewExporter(seeded(t), 100)

	var buf bytes.Buffer
	if err := e.FullBackup(context.Background(), &buf); err != nil {
		t.Fatalf("FullBackup() error = %v", err)
	}

	var backup Backup
	if err := json.Unmarshal(buf.Bytes(), &backup); err != nil {
		t.Fatalf("parse backup: %v", err)
	}

	if backup.Version != BackupVersion {
		t.Errorf("version = %d, want %d", backup.Version, BackupVersion)
	}
	if backup.ExportedAt.IsZero() {
		t.Error("exported_at should be set")
	}
	if len(backup.Accounts) != 2 {
		t.Errorf("got %d accounts, want 2", len(backup.Accounts))
	}
	if len(backup.Categories) != 2 {
		t.Errorf("got %d categories, want 2", len(backup.Categories))
	}
	if len(backup.Transactions) != 3 {
		t.Errorf("got %d transactions, want 3", len(backup.Transactions))
	}
}
