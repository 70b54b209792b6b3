package worker

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"poupai/internal/amqp"
	"poupai/internal/core"
	"poupai/internal/store"
)

func seedExpense(t *testing.T, mem *store.Memory, userID string, amount int64, day int) {
	t.Helper()
	_, err := mem.Create(context.Background(), core.TransactionDraft{
		UserID:      userID,
		Description: "Expense",
		Category:    "Misc",
		Kind:        core.Expense,
		Recurrence:  core.Single,
		Amount:      decimal.NewFromInt(-amount),
		Date:        core.NewDate(2025, 4, day),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func saveProfile(t *testing.T, mem *store.Memory, userID string, goal int64) {
	t.Helper()
	err := mem.SaveProfile(context.Background(), core.Profile{
		UserID:            userID,
		MonthlyIncome:     decimal.NewFromInt(2500),
		PaymentDay:        27,
		MonthlyBudgetGoal: decimal.NewFromInt(goal),
	})
	if err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}
}

func TestCheckBudgetRaisesWhenExceeded(t *testing.T) {
	mem := store.NewMemory()
	saveProfile(t, mem, "u1", 500)
	seedExpense(t, mem, "u1", 300, 5)
	seedExpense(t, mem, "u1", 300, 10)

	w := NewAlertsWorker(mem, store.FixedClock{T: time.Date(2025, 4, 20, 12, 0, 0, 0, time.UTC)})
	var got []BudgetAlert
	w.Notify = func(ctx context.Context, alert BudgetAlert) { got = append(got, alert) }

	if err := w.CheckBudget(context.Background(), "u1"); err != nil {
		t.Fatalf("CheckBudget() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(alerts) = %d, want 1", len(got))
	}
	alert := got[0]
	if alert.UserID != "u1" || alert.Year != 2025 || alert.Month != 4 {
		t.Errorf("alert = %+v, want u1 2025-04", alert)
	}
	if !alert.Expense.Equal(decimal.NewFromInt(600)) {
		t.Errorf("alert.Expense = %s, want 600", alert.Expense)
	}
}

func TestCheckBudgetWithinGoalIsSilent(t *testing.T) {
	mem := store.NewMemory()
	saveProfile(t, mem, "u1", 500)
	seedExpense(t, mem, "u1", 200, 5)

	w := NewAlertsWorker(mem, store.FixedClock{T: time.Date(2025, 4, 20, 12, 0, 0, 0, time.UTC)})
	var got []BudgetAlert
	w.Notify = func(ctx context.Context, alert BudgetAlert) { got = append(got, alert) }

	if err := w.CheckBudget(context.Background(), "u1"); err != nil {
		t.Fatalf("CheckBudget() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len(alerts) = %d, want 0", len(got))
	}
}

func TestCheckBudgetIgnoresOtherMonths(t *testing.T) {
	mem := store.NewMemory()
	saveProfile(t, mem, "u1", 500)
	seedExpense(t, mem, "u1", 600, 5)

	// Clock is in May; April's overspend is not this month's problem.
	w := NewAlertsWorker(mem, store.FixedClock{T: time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC)})
	var got []BudgetAlert
	w.Notify = func(ctx context.Context, alert BudgetAlert) { got = append(got, alert) }

	if err := w.CheckBudget(context.Background(), "u1"); err != nil {
		t.Fatalf("CheckBudget() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len(alerts) = %d, want 0", len(got))
	}
}

func TestCheckBudgetNoProfileOrGoal(t *testing.T) {
	mem := store.NewMemory()
	seedExpense(t, mem, "u1", 600, 5)

	w := NewAlertsWorker(mem, store.FixedClock{T: time.Date(2025, 4, 20, 12, 0, 0, 0, time.UTC)})
	if err := w.CheckBudget(context.Background(), "u1"); err != nil {
		t.Fatalf("CheckBudget() without profile error = %v", err)
	}

	// A profile with a zero goal opts out of alerts.
	saveProfile(t, mem, "u2", 0)
	seedExpense(t, mem, "u2", 600, 5)
	var got []BudgetAlert
	w.Notify = func(ctx context.Context, alert BudgetAlert) { got = append(got, alert) }
	if err := w.CheckBudget(context.Background(), "u2"); err != nil {
		t.Fatalf("CheckBudget() zero goal error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len(alerts) = %d, want 0", len(got))
	}
}

func TestHandleLedgerEvent(t *testing.T) {
	mem := store.NewMemory()
	saveProfile(t, mem, "u1", 100)
	seedExpense(t, mem, "u1", 600, 5)

	w := NewAlertsWorker(mem, store.FixedClock{T: time.Date(2025, 4, 20, 12, 0, 0, 0, time.UTC)})
	var got []BudgetAlert
	w.Notify = func(ctx context.Context, alert BudgetAlert) { got = append(got, alert) }

	msg := amqp.NewLedgerEventMessage(amqp.EventTransactionCreated, "u1")
	if err := w.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerEvent() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(alerts) = %d, want 1", len(got))
	}

	unknown := amqp.NewLedgerEventMessage("ledger.unknown", "u1")
	if err := w.HandleLedgerEvent(context.Background(), unknown); err != nil {
		t.Fatalf("HandleLedgerEvent() unknown event error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unknown event raised an alert, len = %d, want 1", len(got))
	}
}

func TestCheckAllBudgets(t *testing.T) {
	mem := store.NewMemory()
	saveProfile(t, mem, "u1", 100)
	seedExpense(t, mem, "u1", 600, 5)
	saveProfile(t, mem, "u2", 1000)
	seedExpense(t, mem, "u2", 600, 5)

	w := NewAlertsWorker(mem, store.FixedClock{T: time.Date(2025, 4, 20, 12, 0, 0, 0, time.UTC)})
	var got []BudgetAlert
	w.Notify = func(ctx context.Context, alert BudgetAlert) { got = append(got, alert) }

	if err := w.CheckAllBudgets(context.Background()); err != nil {
		t.Fatalf("CheckAllBudgets() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(alerts) = %d, want 1", len(got))
	}
	if got[0].UserID != "u1" {
		t.Errorf("alert.UserID = %q, want %q", got[0].UserID, "u1")
	}
}
