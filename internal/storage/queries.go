package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so queries can run inside
// or outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// transactionRow mirrors the transactions table.
type transactionRow struct {
	ID           int64
	UserID       string
	GroupID      string
	SeriesIndex  int64
	SeriesLength int64
	Description  string
	Category     string
	Kind         string
	Recurrence   string
	Amount       string
	Date         string
	IsScheduled  int64
}

type createTransactionParams struct {
	UserID       string
	GroupID      string
	SeriesIndex  int64
	SeriesLength int64
	Description  string
	Category     string
	Kind         string
	Recurrence   string
	Amount       string
	Date         string
	IsScheduled  int64
}

const transactionColumns = `id, user_id, group_id, series_index, series_length,
	description, category, kind, recurrence, amount, date, is_scheduled`

const createTransaction = `
INSERT INTO transactions (user_id, group_id, series_index, series_length,
	description, category, kind, recurrence, amount, date, is_scheduled)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

func (q *Queries) CreateTransaction(ctx context.Context, p createTransactionParams) (transactionRow, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		p.UserID, p.GroupID, p.SeriesIndex, p.SeriesLength,
		p.Description, p.Category, p.Kind, p.Recurrence,
		p.Amount, p.Date, p.IsScheduled)
	return scanTransaction(row)
}

const listTransactions = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ?
ORDER BY date, id`

func (q *Queries) ListTransactions(ctx context.Context, userID string) ([]transactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

const listGroupTransactions = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ? AND group_id = ? AND group_id != ''
ORDER BY series_index, date`

func (q *Queries) ListGroupTransactions(ctx context.Context, userID, groupID string) ([]transactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listGroupTransactions, userID, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteGroupTransactions = `
DELETE FROM transactions WHERE user_id = ? AND group_id = ? AND group_id != ''`

func (q *Queries) DeleteGroupTransactions(ctx context.Context, userID, groupID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteGroupTransactions, userID, groupID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type profileRow struct {
	UserID            string
	MonthlyIncome     string
	PaymentDay        int64
	MonthlyBudgetGoal string
}

const getProfile = `
SELECT user_id, monthly_income, payment_day, monthly_budget_goal
FROM profiles WHERE user_id = ?`

func (q *Queries) GetProfile(ctx context.Context, userID string) (profileRow, error) {
	var p profileRow
	err := q.db.QueryRowContext(ctx, getProfile, userID).
		Scan(&p.UserID, &p.MonthlyIncome, &p.PaymentDay, &p.MonthlyBudgetGoal)
	return p, err
}

const upsertProfile = `
INSERT INTO profiles (user_id, monthly_income, payment_day, monthly_budget_goal, updated_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(user_id) DO UPDATE SET
	monthly_income = excluded.monthly_income,
	payment_day = excluded.payment_day,
	monthly_budget_goal = excluded.monthly_budget_goal,
	updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertProfile(ctx context.Context, p profileRow) error {
	_, err := q.db.ExecContext(ctx, upsertProfile,
		p.UserID, p.MonthlyIncome, p.PaymentDay, p.MonthlyBudgetGoal)
	return err
}

const listProfiles = `
SELECT user_id, monthly_income, payment_day, monthly_budget_goal
FROM profiles ORDER BY user_id`

func (q *Queries) ListProfiles(ctx context.Context) ([]profileRow, error) {
	rows, err := q.db.QueryContext(ctx, listProfiles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []profileRow
	for rows.Next() {
		var p profileRow
		if err := rows.Scan(&p.UserID, &p.MonthlyIncome, &p.PaymentDay, &p.MonthlyBudgetGoal); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type deferralRow struct {
	UserID        string
	ScheduledDate string
	Amount        string
}

const getSalaryDeferral = `
SELECT user_id, scheduled_date, amount FROM salary_deferrals WHERE user_id = ?`

func (q *Queries) GetSalaryDeferral(ctx context.Context, userID string) (deferralRow, error) {
	var d deferralRow
	err := q.db.QueryRowContext(ctx, getSalaryDeferral, userID).
		Scan(&d.UserID, &d.ScheduledDate, &d.Amount)
	return d, err
}

const upsertSalaryDeferral = `
INSERT INTO salary_deferrals (user_id, scheduled_date, amount)
VALUES (?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	scheduled_date = excluded.scheduled_date,
	amount = excluded.amount`

func (q *Queries) UpsertSalaryDeferral(ctx context.Context, d deferralRow) error {
	_, err := q.db.ExecContext(ctx, upsertSalaryDeferral, d.UserID, d.ScheduledDate, d.Amount)
	return err
}

const deleteSalaryDeferral = `DELETE FROM salary_deferrals WHERE user_id = ?`

func (q *Queries) DeleteSalaryDeferral(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, deleteSalaryDeferral, userID)
	return err
}

func scanTransaction(row *sql.Row) (transactionRow, error) {
	var t transactionRow
	err := row.Scan(&t.ID, &t.UserID, &t.GroupID, &t.SeriesIndex, &t.SeriesLength,
		&t.Description, &t.Category, &t.Kind, &t.Recurrence,
		&t.Amount, &t.Date, &t.IsScheduled)
	return t, err
}

func collectTransactions(rows *sql.Rows) ([]transactionRow, error) {
	var out []transactionRow
	for rows.Next() {
		var t transactionRow
		if err := rows.Scan(&t.ID, &t.UserID, &t.GroupID, &t.SeriesIndex, &t.SeriesLength,
			&t.Description, &t.Category, &t.Kind, &t.Recurrence,
			&t.Amount, &t.Date, &t.IsScheduled); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
