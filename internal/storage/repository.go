package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"poupai/internal/core"
	"poupai/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements store.Ledger on a local SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
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

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]core.TransactionRecord, error) {
	rows, err := r.queries.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return recordsFromRows(rows)
}

func (r *SQLiteRepository) ListGroup(ctx context.Context, userID, groupID string) ([]core.TransactionRecord, error) {
	rows, err := r.queries.ListGroupTransactions(ctx, userID, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group transactions: %w", err)
	}
	return recordsFromRows(rows)
}

func (r *SQLiteRepository) Create(ctx context.Context, draft core.TransactionDraft) (core.TransactionRecord, error) {
	scheduled := int64(0)
	if draft.IsScheduled {
		scheduled = 1
	}
	row, err := r.queries.CreateTransaction(ctx, createTransactionParams{
		UserID:       draft.UserID,
		GroupID:      draft.GroupID,
		SeriesIndex:  int64(draft.SeriesIndex),
		SeriesLength: int64(draft.SeriesLength),
		Description:  draft.Description,
		Category:     draft.Category,
		Kind:         string(draft.Kind),
		Recurrence:   string(draft.Recurrence),
		Amount:       draft.Amount.String(),
		Date:         draft.Date.Input(),
		IsScheduled:  scheduled,
	})
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("create transaction: %w", err)
	}

	rec, err := recordFromRow(row)
	if err != nil {
		return core.TransactionRecord{}, err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", rec.ID,
		"user_id", rec.UserID,
		"description", rec.Description,
		"amount", rec.Amount.String(),
		"date", rec.Date.Input())
	return rec, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	affected, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByGroup(ctx context.Context, userID, groupID string) error {
	affected, err := r.queries.DeleteGroupTransactions(ctx, userID, groupID)
	if err != nil {
		return fmt.Errorf("delete group transactions: %w", err)
	}
	slog.InfoContext(ctx, "Series deleted from SQLite",
		"user_id", userID,
		"group_id", groupID,
		"records", affected)
	return nil
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	row, err := r.queries.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Profile{}, store.ErrNotFound
		}
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	income, err := decimal.NewFromString(row.MonthlyIncome)
	if err != nil {
		return core.Profile{}, fmt.Errorf("parse monthly income %q: %w", row.MonthlyIncome, err)
	}
	goal, err := decimal.NewFromString(row.MonthlyBudgetGoal)
	if err != nil {
		return core.Profile{}, fmt.Errorf("parse budget goal %q: %w", row.MonthlyBudgetGoal, err)
	}
	return core.Profile{
		UserID:            row.UserID,
		MonthlyIncome:     income,
		PaymentDay:        int(row.PaymentDay),
		MonthlyBudgetGoal: goal,
	}, nil
}

func (r *SQLiteRepository) SaveProfile(ctx context.Context, p core.Profile) error {
	err := r.queries.UpsertProfile(ctx, profileRow{
		UserID:            p.UserID,
		MonthlyIncome:     p.MonthlyIncome.String(),
		PaymentDay:        int64(p.PaymentDay),
		MonthlyBudgetGoal: p.MonthlyBudgetGoal.String(),
	})
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListProfiles(ctx context.Context) ([]core.Profile, error) {
	rows, err := r.queries.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	out := make([]core.Profile, 0, len(rows))
	for _, row := range rows {
		income, err := decimal.NewFromString(row.MonthlyIncome)
		if err != nil {
			return nil, fmt.Errorf("parse monthly income for %s: %w", row.UserID, err)
		}
		goal, err := decimal.NewFromString(row.MonthlyBudgetGoal)
		if err != nil {
			return nil, fmt.Errorf("parse budget goal for %s: %w", row.UserID, err)
		}
		out = append(out, core.Profile{
			UserID:            row.UserID,
			MonthlyIncome:     income,
			PaymentDay:        int(row.PaymentDay),
			MonthlyBudgetGoal: goal,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) GetSalaryDeferral(ctx context.Context, userID string) (core.SalaryDeferral, error) {
	row, err := r.queries.GetSalaryDeferral(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.SalaryDeferral{}, store.ErrNotFound
		}
		return core.SalaryDeferral{}, fmt.Errorf("get salary deferral: %w", err)
	}

	date, err := core.ParseLocalDate(row.ScheduledDate)
	if err != nil {
		return core.SalaryDeferral{}, fmt.Errorf("parse deferral date: %w", err)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.SalaryDeferral{}, fmt.Errorf("parse deferral amount %q: %w", row.Amount, err)
	}
	return core.SalaryDeferral{UserID: row.UserID, ScheduledDate: date, Amount: amount}, nil
}

func (r *SQLiteRepository) SaveSalaryDeferral(ctx context.Context, d core.SalaryDeferral) error {
	err := r.queries.UpsertSalaryDeferral(ctx, deferralRow{
		UserID:        d.UserID,
		ScheduledDate: d.ScheduledDate.Input(),
		Amount:        d.Amount.String(),
	})
	if err != nil {
		return fmt.Errorf("save salary deferral: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSalaryDeferral(ctx context.Context, userID string) error {
	if err := r.queries.DeleteSalaryDeferral(ctx, userID); err != nil {
		return fmt.Errorf("delete salary deferral: %w", err)
	}
	return nil
}

func recordFromRow(row transactionRow) (core.TransactionRecord, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("parse amount %q: %w", row.Amount, err)
	}
	date, err := core.ParseLocalDate(row.Date)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("parse date %q: %w", row.Date, err)
	}
	return core.TransactionRecord{
		ID:           row.ID,
		UserID:       row.UserID,
		GroupID:      row.GroupID,
		SeriesIndex:  int(row.SeriesIndex),
		SeriesLength: int(row.SeriesLength),
		Description:  row.Description,
		Category:     row.Category,
		Kind:         core.Kind(row.Kind),
		Recurrence:   core.Recurrence(row.Recurrence),
		Amount:       amount,
		Date:         date,
		IsScheduled:  row.IsScheduled != 0,
	}, nil
}

func recordsFromRows(rows []transactionRow) ([]core.TransactionRecord, error) {
	out := make([]core.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := recordFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", row.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
