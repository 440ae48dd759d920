package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"moneta/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements the data service contracts on a local
// SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const detailColumns = `
	t.id, t.date, t.type, t.amount, t.account_id, t.to_account_id,
	t.category_id, t.memo, t.photo_path, t.created_at,
	a.name AS account_name,
	COALESCE(ta.name, '') AS to_account_name,
	COALESCE(c.name, '') AS category_name
FROM transactions t
INNER JOIN accounts a ON t.account_id = a.id
LEFT JOIN accounts ta ON t.to_account_id = ta.id
LEFT JOIN categories c ON t.category_id = c.id`

// TransactionsFiltered returns transactions matching the filter with
// resolved display names, newest first. Every clause is parameterized.
func (r *SQLiteRepository) TransactionsFiltered(ctx context.Context, filter core.Filter) ([]core.TransactionWithDetails, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("validate filter: %w", err)
	}

	var (
		where []string
		args  []any
	)
	if filter.StartDate != nil {
		where = append(where, "t.date >= ?")
		args = append(args, filter.StartDate.String())
	}
	if filter.EndDate != nil {
		where = append(where, "t.date <= ?")
		args = append(args, filter.EndDate.String())
	}
	if filter.Kind != nil {
		where = append(where, "t.type = ?")
		args = append(args, string(*filter.Kind))
	}
	if filter.AccountID != nil {
		where = append(where, "(t.account_id = ? OR t.to_account_id = ?)")
		args = append(args, *filter.AccountID, *filter.AccountID)
	}
	if filter.CategoryID != nil {
		if filter.IncludeSubcategories {
			where = append(where, "t.category_id IN (SELECT id FROM categories WHERE id = ? OR parent_id = ?)")
			args = append(args, *filter.CategoryID, *filter.CategoryID)
		} else {
			where = append(where, "t.category_id = ?")
			args = append(args, *filter.CategoryID)
		}
	}
	if filter.SearchText != "" {
		where = append(where, "(t.memo LIKE ? OR CAST(t.amount AS TEXT) LIKE ?)")
		like := "%" + filter.SearchText + "%"
		args = append(args, like, like)
	}

	query := "SELECT " + detailColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.date DESC, t.created_at DESC, t.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query filtered transactions: %w", err)
	}
	defer rows.Close()

	var out []core.TransactionWithDetails
	for rows.Next() {
		d, err := scanDetails(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDetails(rows *sql.Rows) (core.TransactionWithDetails, error) {
	var (
		d           core.TransactionWithDetails
		date        string
		kind        string
		toAccountID sql.NullInt64
		categoryID  sql.NullInt64
		createdAt   time.Time
	)
	err := rows.Scan(
		&d.ID, &date, &kind, &d.Amount, &d.AccountID, &toAccountID,
		&categoryID, &d.Memo, &d.PhotoPath, &createdAt,
		&d.AccountName, &d.ToAccountName, &d.CategoryName,
	)
	if err != nil {
		return d, fmt.Errorf("scan transaction: %w", err)
	}
	d.Date, err = core.ParseDate(date)
	if err != nil {
		return d, fmt.Errorf("transaction %d: %w", d.ID, err)
	}
	d.Kind = core.Kind(kind)
	d.CreatedAt = createdAt
	if toAccountID.Valid {
		v := toAccountID.Int64
		d.ToAccountID = &v
	}
	if categoryID.Valid {
		v := categoryID.Int64
		d.CategoryID = &v
	}
	return d, nil
}

// CategorySpending aggregates raw totals per parent category: spending on
// a child category rolls up into its parent.
func (r *SQLiteRepository) CategorySpending(ctx context.Context, start, end core.Date, kind core.Kind) ([]core.CategorySpending, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			COALESCE(c.parent_id, c.id) AS category_id,
			COALESCE(pc.name, c.name) AS category_name,
			SUM(t.amount) AS total,
			COUNT(*) AS cnt
		FROM transactions t
		INNER JOIN categories c ON t.category_id = c.id
		LEFT JOIN categories pc ON c.parent_id = pc.id
		WHERE t.date >= ? AND t.date <= ? AND t.type = ?
		GROUP BY COALESCE(c.parent_id, c.id)
		ORDER BY total DESC, category_name ASC`,
		start.String(), end.String(), string(kind))
	if err != nil {
		return nil, fmt.Errorf("query category spending: %w", err)
	}
	defer rows.Close()

	var out []core.CategorySpending
	for rows.Next() {
		var cs core.CategorySpending
		if err := rows.Scan(&cs.CategoryID, &cs.Name, &cs.Total, &cs.Count); err != nil {
			return nil, fmt.Errorf("scan category spending: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// MonthlyTrends returns chronological month buckets for the trailing
// window.
func (r *SQLiteRepository) MonthlyTrends(ctx context.Context, months int) ([]core.MonthlyTrend, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			strftime('%Y-%m', date) AS month,
			COALESCE(SUM(CASE WHEN type = 'INCOME' THEN amount ELSE 0 END), 0) AS income,
			COALESCE(SUM(CASE WHEN type = 'EXPENSE' THEN amount ELSE 0 END), 0) AS expense,
			COUNT(*) AS cnt
		FROM transactions
		WHERE date >= date('now', ? || ' months')
		GROUP BY strftime('%Y-%m', date)
		ORDER BY month ASC`,
		fmt.Sprintf("-%d", months))
	if err != nil {
		return nil, fmt.Errorf("query monthly trends: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyTrend
	for rows.Next() {
		var m core.MonthlyTrend
		if err := rows.Scan(&m.Month, &m.Income, &m.Expense, &m.TransactionCount); err != nil {
			return nil, fmt.Errorf("scan monthly trend: %w", err)
		}
		m.Net = m.Income - m.Expense
		m.MonthLabel = monthLabel(m.Month)
		out = append(out, m)
	}
	return out, rows.Err()
}

// monthLabel turns "2024-06" into "June 2024"; unparseable input passes
// through unchanged.
func monthLabel(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return t.Format("January 2006")
}

func (r *SQLiteRepository) IncomeExpenseSummary(ctx context.Context, start, end core.Date) (core.PeriodSummary, error) {
	sum := core.PeriodSummary{StartDate: start, EndDate: end}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'INCOME' THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'EXPENSE' THEN amount ELSE 0 END), 0),
			COUNT(*)
		FROM transactions
		WHERE date >= ? AND date <= ?`,
		start.String(), end.String()).
		Scan(&sum.TotalIncome, &sum.TotalExpense, &sum.TransactionCount)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("query income expense summary: %w", err)
	}
	sum.NetSavings = sum.TotalIncome - sum.TotalExpense
	return sum, nil
}

// AccountsWithBalance derives each balance as the initial balance plus
// signed transaction flows: income and incoming transfers add, expenses
// and outgoing transfers subtract.
func (r *SQLiteRepository) AccountsWithBalance(ctx context.Context) ([]core.AccountWithBalance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			a.id, a.name, a.initial_balance, a.currency, a.created_at,
			a.initial_balance
			+ COALESCE((SELECT SUM(CASE
				WHEN t.type = 'INCOME' THEN t.amount
				WHEN t.type = 'EXPENSE' THEN -t.amount
				WHEN t.type = 'TRANSFER' THEN -t.amount
				ELSE 0 END)
				FROM transactions t WHERE t.account_id = a.id), 0)
			+ COALESCE((SELECT SUM(t.amount)
				FROM transactions t
				WHERE t.type = 'TRANSFER' AND t.to_account_id = a.id), 0) AS balance
		FROM accounts a
		ORDER BY a.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query accounts with balance: %w", err)
	}
	defer rows.Close()

	var out []core.AccountWithBalance
	for rows.Next() {
		var a core.AccountWithBalance
		if err := rows.Scan(&a.ID, &a.Name, &a.InitialBalance, &a.Currency, &a.CreatedAt, &a.CurrentBalance); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, parent_id, name, type FROM categories ORDER BY type, name")
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c        core.Category
			parentID sql.NullInt64
			kind     string
		)
		if err := rows.Scan(&c.ID, &parentID, &c.Name, &kind); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if parentID.Valid {
			v := parentID.Int64
			c.ParentID = &v
		}
		c.Kind = core.Kind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, fmt.Errorf("validate transaction: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (date, type, amount, account_id, to_account_id, category_id, memo, photo_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.Date.String(), string(tx.Kind), tx.Amount, tx.AccountID,
		nullable(tx.ToAccountID), nullable(tx.CategoryID), tx.Memo, tx.PhotoPath)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"kind", tx.Kind,
		"amount", tx.Amount,
		"date", tx.Date.String())
	return id, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET date = ?, type = ?, amount = ?, account_id = ?, to_account_id = ?, category_id = ?, memo = ?, photo_path = ?
		WHERE id = ?`,
		tx.Date.String(), string(tx.Kind), tx.Amount, tx.AccountID,
		nullable(tx.ToAccountID), nullable(tx.CategoryID), tx.Memo, tx.PhotoPath, tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", tx.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// CreateAccount and CreateCategory exist for seeding and backups.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO accounts (name, initial_balance, currency) VALUES (?, ?, ?)",
		a.Name, a.InitialBalance, a.Currency)
	if err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (parent_id, name, type) VALUES (?, ?, ?)",
		nullable(c.ParentID), c.Name, string(c.Kind))
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	return res.LastInsertId()
}

func nullable(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
