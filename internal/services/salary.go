package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"poupai/internal/core"
	"poupai/internal/store"
)

// SalaryProcessor posts the automatic monthly salary for every configured
// profile, at most once per calendar month per user.
type SalaryProcessor struct {
	ledger store.Ledger
	svc    *LedgerService
}

// NewSalaryProcessor creates a salary processor.
func NewSalaryProcessor(ledger store.Ledger, svc *LedgerService) *SalaryProcessor {
	return &SalaryProcessor{ledger: ledger, svc: svc}
}

// ShouldPostSalary is the pure scheduling rule. It requires a complete
// profile, then:
//   - first run (onboarding completion) bypasses every other check and
//     posts immediately at today's date regardless of the payment day;
//   - otherwise the salary is not due before the configured payment day
//     (clamped to the month's last day when the month is shorter),
//     and never twice in the same calendar month; an existing record
//     matching the exact {income, "Salary", "Salary"} triple this month
//     blocks reposting.
func ShouldPostSalary(profile core.Profile, existing []core.TransactionRecord, today core.Date, firstRun bool) bool {
	if !profile.HasProfileIncome() {
		return false
	}
	if firstRun {
		return true
	}
	// A payment day beyond the month's end (31 in February) clamps to the
	// last day so short months still pay.
	payday := profile.PaymentDay
	if last := core.DaysInMonth(today.Year(), today.Month()); payday > last {
		payday = last
	}
	if today.Day() < payday {
		return false
	}
	for _, r := range existing {
		if r.Kind == core.Income &&
			r.Category == core.SalaryCategory &&
			r.Description == core.SalaryDescription &&
			core.SameMonth(r.Date, today) {
			return false
		}
	}
	return true
}

// ProcessUser evaluates one user's salary for "now", honoring a pending
// deferral record: while its scheduled date is in the future nothing is
// posted and the deferral is left untouched; once due, the deferral is
// consumed and the normal rule takes over. Returns true when a salary
// record was created.
func (p *SalaryProcessor) ProcessUser(ctx context.Context, userID string, now time.Time, firstRun bool) (bool, error) {
	today := core.DateOf(now)

	profile, err := p.ledger.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get profile: %w", err)
	}

	deferral, err := p.ledger.GetSalaryDeferral(ctx, userID)
	switch {
	case err == nil:
		if deferral.ScheduledDate.After(today) {
			slog.DebugContext(ctx, "Salary deferred",
				"user_id", userID,
				"scheduled_date", deferral.ScheduledDate.Input())
			return false, nil
		}
		if err := p.ledger.DeleteSalaryDeferral(ctx, userID); err != nil {
			return false, fmt.Errorf("consume salary deferral: %w", err)
		}
	case errors.Is(err, store.ErrNotFound):
		// No deferral pending.
	default:
		return false, fmt.Errorf("get salary deferral: %w", err)
	}

	existing, err := p.ledger.List(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list transactions: %w", err)
	}

	if !ShouldPostSalary(profile, existing, today, firstRun) {
		return false, nil
	}

	tpl := core.TransactionTemplate{
		Description: core.SalaryDescription,
		Amount:      profile.MonthlyIncome,
		Kind:        core.Income,
		Category:    core.SalaryCategory,
		Recurrence:  core.Single,
		StartDate:   today,
	}
	if _, err := p.svc.CreateSalaryPosting(ctx, userID, tpl, now); err != nil {
		return false, fmt.Errorf("post salary: %w", err)
	}

	slog.InfoContext(ctx, "Posted monthly salary",
		"user_id", userID,
		"amount", profile.MonthlyIncome.String(),
		"date", today.Input())
	return true, nil
}

// ProcessAll runs the salary evaluation across every profile. Errors on
// one user are logged and do not stop the others.
func (p *SalaryProcessor) ProcessAll(ctx context.Context, now time.Time) (int, error) {
	profiles, err := p.ledger.ListProfiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("list profiles: %w", err)
	}

	slog.InfoContext(ctx, "Processing salary postings",
		"profiles", len(profiles),
		"processing_date", now.Format("2006-01-02"))

	posted := 0
	for _, profile := range profiles {
		ok, err := p.ProcessUser(ctx, profile.UserID, now, false)
		if err != nil {
			slog.ErrorContext(ctx, "Salary processing failed",
				"user_id", profile.UserID,
				"error", err)
			continue
		}
		if ok {
			posted++
		}
	}

	slog.InfoContext(ctx, "Salary processing complete",
		"posted", posted,
		"profiles_checked", len(profiles))
	return posted, nil
}
