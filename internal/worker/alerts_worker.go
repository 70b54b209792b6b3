// Package worker hosts the background consumers that react to ledger
// events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"poupai/internal/amqp"
	"poupai/internal/core"
	"poupai/internal/services"
	"poupai/internal/store"
)

// BudgetAlert describes one month where spending crossed the user's goal.
type BudgetAlert struct {
	UserID  string
	Year    int
	Month   int
	Expense decimal.Decimal
	Goal    decimal.Decimal
}

// AlertsWorker recomputes the current month's spending whenever the
// ledger changes and raises an alert when the user's budget goal is
// exceeded. Alerts are logged; Notify can be swapped for a real channel.
type AlertsWorker struct {
	ledger store.Ledger
	clock  store.Clock

	// Notify receives every raised alert. Defaults to logging.
	Notify func(ctx context.Context, alert BudgetAlert)
}

func NewAlertsWorker(ledger store.Ledger, clock store.Clock) *AlertsWorker {
	if clock == nil {
		clock = store.SystemClock{}
	}
	return &AlertsWorker{ledger: ledger, clock: clock}
}

// HandleLedgerEvent processes a single ledger event from AMQP.
func (w *AlertsWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event", msg.Event,
		"user_id", msg.UserID)

	switch msg.Event {
	case amqp.EventTransactionCreated, amqp.EventTransactionDeleted,
		amqp.EventSeriesRegenerated, amqp.EventSalaryPosted:
		return w.CheckBudget(ctx, msg.UserID)
	default:
		slog.WarnContext(ctx, "Unknown ledger event, skipping", "event", msg.Event)
		return nil
	}
}

// CheckBudget compares the user's current-month spending against their
// budget goal and raises an alert when exceeded.
func (w *AlertsWorker) CheckBudget(ctx context.Context, userID string) error {
	profile, err := w.ledger.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get profile: %w", err)
	}
	if !profile.MonthlyBudgetGoal.IsPositive() {
		return nil
	}

	records, err := w.ledger.List(ctx, userID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	now := w.clock.Now()
	asOf := core.DateOf(now)
	year, month := now.Year(), int(now.Month())

	var agg services.Aggregator
	summary := agg.Summarize(records, year, month, asOf)

	if summary.Expense.LessThanOrEqual(profile.MonthlyBudgetGoal) {
		slog.DebugContext(ctx, "Spending within budget",
			"user_id", userID,
			"expense", summary.Expense.String(),
			"goal", profile.MonthlyBudgetGoal.String())
		return nil
	}

	alert := BudgetAlert{
		UserID:  userID,
		Year:    year,
		Month:   month,
		Expense: summary.Expense,
		Goal:    profile.MonthlyBudgetGoal,
	}
	w.raise(ctx, alert)
	return nil
}

// CheckAllBudgets runs the budget check for every known profile. Used as
// a startup sweep to recover from missed events.
func (w *AlertsWorker) CheckAllBudgets(ctx context.Context) error {
	profiles, err := w.ledger.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	var firstErr error
	for _, p := range profiles {
		if err := w.CheckBudget(ctx, p.UserID); err != nil {
			slog.ErrorContext(ctx, "Budget check failed",
				"user_id", p.UserID,
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (w *AlertsWorker) raise(ctx context.Context, alert BudgetAlert) {
	if w.Notify != nil {
		w.Notify(ctx, alert)
		return
	}
	slog.WarnContext(ctx, "Monthly budget exceeded",
		"user_id", alert.UserID,
		"year", alert.Year,
		"month", alert.Month,
		"expense", alert.Expense.String(),
		"goal", alert.Goal.String())
}
