package backend

import (
	"context"

	"moneta/internal/core"
)

// DataService is the query contract the reporting core consumes. Amounts
// are non-negative floats in a single implicit currency; dates are
// calendar dates.
type DataService interface {
	// TransactionsFiltered returns transactions matching the filter with
	// resolved account and category display names, newest first.
	TransactionsFiltered(ctx context.Context, filter core.Filter) ([]core.TransactionWithDetails, error)

	// CategorySpending returns raw per-category totals for one period and
	// kind, children grouped under their parent category.
	CategorySpending(ctx context.Context, start, end core.Date, kind core.Kind) ([]core.CategorySpending, error)

	// MonthlyTrends returns up to months chronological month buckets.
	MonthlyTrends(ctx context.Context, months int) ([]core.MonthlyTrend, error)

	// IncomeExpenseSummary aggregates income, expense, and net savings
	// over one inclusive date range.
	IncomeExpenseSummary(ctx context.Context, start, end core.Date) (core.PeriodSummary, error)

	// AccountsWithBalance returns every account with its current balance.
	AccountsWithBalance(ctx context.Context) ([]core.AccountWithBalance, error)

	// Categories returns the full category forest.
	Categories(ctx context.Context) ([]core.Category, error)
}

// TransactionStore is the mutation side of the data service.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
}

// Backend is a full data backend: queries plus mutations.
type Backend interface {
	DataService
	TransactionStore
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error
