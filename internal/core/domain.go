package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	KindIncome   Kind = "INCOME"
	KindExpense  Kind = "EXPENSE"
	KindTransfer Kind = "TRANSFER"
)

type (
	Kind string

	// Date is a calendar date with no time-of-day component.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          int64
		Date        Date
		Kind        Kind
		Amount      float64
		AccountID   int64
		ToAccountID *int64 // set only for TRANSFER
		CategoryID  *int64
		Memo        string
		PhotoPath   string
		CreatedAt   time.Time
	}

	// TransactionWithDetails carries resolved display names alongside
	// the transaction, as returned by filtered queries.
	TransactionWithDetails struct {
		Transaction
		AccountName   string
		ToAccountName string
		CategoryName  string
	}

	Account struct {
		ID             int64
		Name           string
		InitialBalance float64
		Currency       string
		CreatedAt      time.Time
	}

	AccountWithBalance struct {
		Account
		CurrentBalance float64
	}

	Category struct {
		ID       int64
		ParentID *int64
		Name     string
		Kind     Kind
	}

	// PeriodSummary is an aggregate snapshot over one inclusive date range.
	PeriodSummary struct {
		StartDate        Date
		EndDate          Date
		TotalIncome      float64
		TotalExpense     float64
		NetSavings       float64
		TransactionCount int64
	}

	MonthlyTrend struct {
		Month            string // "2024-06"
		MonthLabel       string // "June 2024"
		Income           float64
		Expense          float64
		Net              float64
		TransactionCount int64
	}
)

var (
	ErrInvalidKind        = errors.New("invalid transaction kind")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvertedRange      = errors.New("start date is after end date")
	ErrMissingDestination = errors.New("transfer requires a destination account")
	ErrSelfTransfer       = errors.New("transfer source and destination are the same account")
	ErrInvalidAccountID   = errors.New("invalid account id")
	ErrInvalidCategoryID  = errors.New("invalid category id")
	ErrNotFound           = errors.New("not found")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String formats the date in YYYY-MM-DD form, the textual form used at
// every service boundary.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// AddDays returns the date shifted by the given number of days.
func (d Date) AddDays(days int) Date {
	return Date{Time: d.Time.AddDate(0, 0, days)}
}

// DaysUntil returns the number of days from d to other (negative if other
// precedes d).
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time) / (24 * time.Hour))
}

func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool  { return d.Time.After(other.Time) }

func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer:
		return true
	}
	return false
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if t.AccountID <= 0 {
		return ErrInvalidAccountID
	}
	if t.Kind == KindTransfer {
		if t.ToAccountID == nil {
			return ErrMissingDestination
		}
		if *t.ToAccountID == t.AccountID {
			return ErrSelfTransfer
		}
	}
	if len(t.Memo) > 500 {
		return errors.New("memo too long (max 500 characters)")
	}
	return nil
}
