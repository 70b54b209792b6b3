package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	Single      Recurrence = "single"
	Fixed       Recurrence = "fixed"
	Installment Recurrence = "installment"
)

// FixedSeriesCap bounds how many occurrences a fixed series materializes,
// even when the end date implies more.
const FixedSeriesCap = 12

type (
	Kind       string
	Recurrence string

	// TransactionTemplate is the user's intent before expansion. Amount is
	// always positive; the sign of the materialized records comes from Kind.
	TransactionTemplate struct {
		Description      string
		Amount           decimal.Decimal
		Kind             Kind
		Category         string
		Recurrence       Recurrence
		StartDate        Date
		EndDate          Date // fixed only; zero means start + 12 months
		InstallmentCount int  // installment only; >= 2
		Scheduled        bool
	}

	// TransactionRecord is a single materialized ledger entry. Amount is
	// signed: negative for expenses.
	TransactionRecord struct {
		ID           int64
		UserID       string
		GroupID      string // shared by a fixed/installment series; empty for single
		SeriesIndex  int    // 1-based position within the series; 0 for single
		SeriesLength int    // installment total count; 0 for single and fixed
		Description  string
		Category     string
		Kind         Kind
		Recurrence   Recurrence
		Amount       decimal.Decimal
		Date         Date
		IsScheduled  bool
	}

	// TransactionDraft is a record before the store has assigned its ID.
	TransactionDraft struct {
		UserID       string
		GroupID      string
		SeriesIndex  int
		SeriesLength int
		Description  string
		Category     string
		Kind         Kind
		Recurrence   Recurrence
		Amount       decimal.Decimal
		Date         Date
		IsScheduled  bool
	}

	// Profile holds the per-user settings the scheduling policy reads.
	Profile struct {
		UserID            string
		MonthlyIncome     decimal.Decimal
		PaymentDay        int
		MonthlyBudgetGoal decimal.Decimal
	}

	// SalaryDeferral defers automatic salary posting until ScheduledDate.
	// It is a separate record from the ledger and is consumed (deleted)
	// the first time the policy evaluates on or after that date.
	SalaryDeferral struct {
		UserID        string
		ScheduledDate Date
		Amount        decimal.Decimal
	}
)

var (
	ErrEmptyDescription  = errors.New("empty description")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidKind       = errors.New("invalid transaction kind")
	ErrInvalidRecurrence = errors.New("invalid recurrence type")
	ErrMissingStartDate  = errors.New("start date is required")
	ErrEndBeforeStart    = errors.New("end date must not be before start date")
	ErrFixedRangeTooLong = errors.New("fixed series may span at most 12 months")
	ErrInstallmentCount  = errors.New("installment count must be at least 2")
)

// SalaryCategory and SalaryDescription identify the automatic monthly
// salary posting. The idempotency check matches the exact triple
// {income, SalaryCategory, SalaryDescription}.
const (
	SalaryCategory    = "Salary"
	SalaryDescription = "Salary"
)

func (k Kind) IsValid() bool {
	return k == Income || k == Expense
}

// Sign returns +1 for income and -1 for expense.
func (k Kind) Sign() int {
	if k == Expense {
		return -1
	}
	return 1
}

func (r Recurrence) IsValid() bool {
	switch r {
	case Single, Fixed, Installment:
		return true
	default:
		return false
	}
}

func (t TransactionTemplate) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Kind.IsValid() {
		return ErrInvalidKind
	}
	if !t.Recurrence.IsValid() {
		return ErrInvalidRecurrence
	}
	if t.StartDate.IsZero() {
		return ErrMissingStartDate
	}

	switch t.Recurrence {
	case Fixed:
		if !t.EndDate.IsZero() {
			if t.EndDate.Before(t.StartDate) {
				return ErrEndBeforeStart
			}
			if MonthsBetween(t.StartDate, t.EndDate) > 12 {
				return ErrFixedRangeTooLong
			}
		}
	case Installment:
		if t.InstallmentCount < 2 {
			return ErrInstallmentCount
		}
	}

	return nil
}

// SignedAmount applies the template's kind to its positive amount.
func (t TransactionTemplate) SignedAmount() decimal.Decimal {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// EffectiveEndDate resolves the fixed-series end date, defaulting to
// twelve months after the start when none was given.
func (t TransactionTemplate) EffectiveEndDate() Date {
	if !t.EndDate.IsZero() {
		return t.EndDate
	}
	return AddMonthsSafe(t.StartDate, 12)
}

// Draft converts a record back into a store draft, used when replaying a
// series through the store.
func (r TransactionRecord) Draft() TransactionDraft {
	return TransactionDraft{
		UserID:       r.UserID,
		GroupID:      r.GroupID,
		SeriesIndex:  r.SeriesIndex,
		SeriesLength: r.SeriesLength,
		Description:  r.Description,
		Category:     r.Category,
		Kind:         r.Kind,
		Recurrence:   r.Recurrence,
		Amount:       r.Amount,
		Date:         r.Date,
		IsScheduled:  r.IsScheduled,
	}
}

// HasProfileIncome reports whether the profile carries everything the
// salary policy needs.
func (p Profile) HasProfileIncome() bool {
	return p.MonthlyIncome.IsPositive() && p.PaymentDay >= 1 && p.PaymentDay <= 31
}
