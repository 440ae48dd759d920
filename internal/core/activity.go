package core

import "fmt"

// ActivitySummary aggregates the flows of one account over a set of
// transactions, classified by kind and direction.
type ActivitySummary struct {
	Inflow           float64
	Outflow          float64
	IncomeCount      int64
	ExpenseCount     int64
	TransferInCount  int64
	TransferOutCount int64
}

// NetChange is money in minus money out.
func (s ActivitySummary) NetChange() float64 {
	return s.Inflow - s.Outflow
}

// TotalTransactions is the number of classified transactions.
func (s ActivitySummary) TotalTransactions() int64 {
	return s.IncomeCount + s.ExpenseCount + s.TransferInCount + s.TransferOutCount
}

// Summarize classifies each transaction by flow direction relative to the
// given account. INCOME adds to inflow, EXPENSE to outflow; a TRANSFER
// counts as outflow when the account is its source and inflow when it is
// its destination. A transfer onto itself violates the data model and is
// rejected rather than guessed at.
func Summarize(transactions []Transaction, accountID int64) (ActivitySummary, error) {
	var s ActivitySummary
	for _, t := range transactions {
		switch t.Kind {
		case KindIncome:
			if t.AccountID == accountID {
				s.Inflow += t.Amount
				s.IncomeCount++
			}
		case KindExpense:
			if t.AccountID == accountID {
				s.Outflow += t.Amount
				s.ExpenseCount++
			}
		case KindTransfer:
			if t.ToAccountID != nil && *t.ToAccountID == t.AccountID {
				return ActivitySummary{}, fmt.Errorf("transaction %d: %w", t.ID, ErrSelfTransfer)
			}
			if t.AccountID == accountID {
				s.Outflow += t.Amount
				s.TransferOutCount++
			}
			if t.ToAccountID != nil && *t.ToAccountID == accountID {
				s.Inflow += t.Amount
				s.TransferInCount++
			}
		default:
			return ActivitySummary{}, fmt.Errorf("transaction %d: %w: %q", t.ID, ErrInvalidKind, t.Kind)
		}
	}
	return s, nil
}

// Combine merges two partial summaries. Summarize is a linear reduction:
// summarizing a whole list equals combining the summaries of any
// partition of it, which permits chunked computation.
func Combine(a, b ActivitySummary) ActivitySummary {
	return ActivitySummary{
		Inflow:           a.Inflow + b.Inflow,
		Outflow:          a.Outflow + b.Outflow,
		IncomeCount:      a.IncomeCount + b.IncomeCount,
		ExpenseCount:     a.ExpenseCount + b.ExpenseCount,
		TransferInCount:  a.TransferInCount + b.TransferInCount,
		TransferOutCount: a.TransferOutCount + b.TransferOutCount,
	}
}
