// Package memory provides an in-memory data backend used for development
// and tests. Aggregates are computed with the same pure reductions the
// report core uses, so both backends agree on semantics.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"moneta/internal/core"
)

type Store struct {
	mu           sync.RWMutex
	accounts     map[int64]core.Account
	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	nextID       int64

	now func() time.Time
}

var (
	ErrAccountNotFound     = fmt.Errorf("account %w", core.ErrNotFound)
	ErrCategoryNotFound    = fmt.Errorf("category %w", core.ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", core.ErrNotFound)
)

func NewStore() *Store {
	return &Store{
		accounts:     make(map[int64]core.Account),
		categories:   make(map[int64]core.Category),
		transactions: make(map[int64]core.Transaction),
		nextID:       1,
		now:          time.Now,
	}
}

// SetClock injects a fixed clock for deterministic trend windows in tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddAccount seeds an account and returns its id.
func (s *Store) AddAccount(a core.Account) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.nextID
		s.nextID++
	} else if a.ID >= s.nextID {
		s.nextID = a.ID + 1
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.accounts[a.ID] = a
	return a.ID
}

// AddCategory seeds a category and returns its id.
func (s *Store) AddCategory(c core.Category) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextID
		s.nextID++
	} else if c.ID >= s.nextID {
		s.nextID = c.ID + 1
	}
	s.categories[c.ID] = c
	return c.ID
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, fmt.Errorf("validate transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[tx.AccountID]; !ok {
		return 0, ErrAccountNotFound
	}
	if tx.ToAccountID != nil {
		if _, ok := s.accounts[*tx.ToAccountID]; !ok {
			return 0, fmt.Errorf("destination: %w", ErrAccountNotFound)
		}
	}
	if tx.CategoryID != nil {
		if _, ok := s.categories[*tx.CategoryID]; !ok {
			return 0, ErrCategoryNotFound
		}
	}

	tx.ID = s.nextID
	s.nextID++
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	s.transactions[tx.ID] = tx
	return tx.ID, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[tx.ID]
	if !ok {
		return ErrTransactionNotFound
	}
	tx.CreatedAt = existing.CreatedAt
	s.transactions[tx.ID] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return ErrTransactionNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) TransactionsFiltered(_ context.Context, filter core.Filter) ([]core.TransactionWithDetails, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.TransactionWithDetails
	for _, tx := range s.transactions {
		if !s.matches(tx, filter) {
			continue
		}
		out = append(out, s.withDetails(tx))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) matches(tx core.Transaction, f core.Filter) bool {
	if f.StartDate != nil && tx.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && tx.Date.After(*f.EndDate) {
		return false
	}
	if f.Kind != nil && tx.Kind != *f.Kind {
		return false
	}
	if f.AccountID != nil {
		involved := tx.AccountID == *f.AccountID ||
			(tx.ToAccountID != nil && *tx.ToAccountID == *f.AccountID)
		if !involved {
			return false
		}
	}
	if f.CategoryID != nil {
		if tx.CategoryID == nil {
			return false
		}
		if *tx.CategoryID != *f.CategoryID {
			if !f.IncludeSubcategories {
				return false
			}
			child, ok := s.categories[*tx.CategoryID]
			if !ok || child.ParentID == nil || *child.ParentID != *f.CategoryID {
				return false
			}
		}
	}
	if f.SearchText != "" {
		q := strings.ToLower(f.SearchText)
		amount := strconv.FormatFloat(tx.Amount, 'f', -1, 64)
		if !strings.Contains(strings.ToLower(tx.Memo), q) && !strings.Contains(amount, q) {
			return false
		}
	}
	return true
}

func (s *Store) withDetails(tx core.Transaction) core.TransactionWithDetails {
	d := core.TransactionWithDetails{Transaction: tx}
	if a, ok := s.accounts[tx.AccountID]; ok {
		d.AccountName = a.Name
	}
	if tx.ToAccountID != nil {
		if a, ok := s.accounts[*tx.ToAccountID]; ok {
			d.ToAccountName = a.Name
		}
	}
	if tx.CategoryID != nil {
		if c, ok := s.categories[*tx.CategoryID]; ok {
			d.CategoryName = c.Name
		}
	}
	return d
}

// CategorySpending groups totals by parent category: a transaction on a
// child category counts toward its parent, matching the SQL backend.
func (s *Store) CategorySpending(_ context.Context, start, end core.Date, kind core.Kind) ([]core.CategorySpending, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[int64]*core.CategorySpending)
	for _, tx := range s.transactions {
		if tx.Kind != kind || tx.CategoryID == nil {
			continue
		}
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		cat, ok := s.categories[*tx.CategoryID]
		if !ok {
			continue
		}
		groupID, groupName := cat.ID, cat.Name
		if cat.ParentID != nil {
			if parent, ok := s.categories[*cat.ParentID]; ok {
				groupID, groupName = parent.ID, parent.Name
			}
		}
		entry, ok := totals[groupID]
		if !ok {
			entry = &core.CategorySpending{CategoryID: groupID, Name: groupName}
			totals[groupID] = entry
		}
		entry.Total += tx.Amount
		entry.Count++
	}

	out := make([]core.CategorySpending, 0, len(totals))
	for _, e := range totals {
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) MonthlyTrends(_ context.Context, months int) ([]core.MonthlyTrend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := core.DateOf(s.now()).AddMonths(-months)
	buckets := make(map[string]*core.MonthlyTrend)
	for _, tx := range s.transactions {
		if tx.Date.Before(cutoff) {
			continue
		}
		key := tx.Date.Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &core.MonthlyTrend{
				Month:      key,
				MonthLabel: tx.Date.Format("January 2006"),
			}
			buckets[key] = b
		}
		switch tx.Kind {
		case core.KindIncome:
			b.Income += tx.Amount
		case core.KindExpense:
			b.Expense += tx.Amount
		}
		b.TransactionCount++
	}

	out := make([]core.MonthlyTrend, 0, len(buckets))
	for _, b := range buckets {
		b.Net = b.Income - b.Expense
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (s *Store) IncomeExpenseSummary(_ context.Context, start, end core.Date) (core.PeriodSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := core.PeriodSummary{StartDate: start, EndDate: end}
	for _, tx := range s.transactions {
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		switch tx.Kind {
		case core.KindIncome:
			sum.TotalIncome += tx.Amount
		case core.KindExpense:
			sum.TotalExpense += tx.Amount
		}
		sum.TransactionCount++
	}
	sum.NetSavings = sum.TotalIncome - sum.TotalExpense
	return sum, nil
}

// AccountsWithBalance derives each balance from the initial balance plus
// the account's net flow over all transactions.
func (s *Store) AccountsWithBalance(_ context.Context) ([]core.AccountWithBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]core.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		all = append(all, tx)
	}

	out := make([]core.AccountWithBalance, 0, len(s.accounts))
	for _, a := range s.accounts {
		activity, err := core.Summarize(all, a.ID)
		if err != nil {
			return nil, fmt.Errorf("summarize account %d: %w", a.ID, err)
		}
		out = append(out, core.AccountWithBalance{
			Account:        a,
			CurrentBalance: a.InitialBalance + activity.NetChange(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) Categories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
