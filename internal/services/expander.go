// Package services holds the recurrence engine and its orchestration:
// template expansion, series reconciliation, scheduling policy, and
// period aggregation.
package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"poupai/internal/core"
)

// Expander materializes a transaction template into its full series of
// dated drafts. Expansion happens once, at creation or edit time; nothing
// is computed lazily at query time.
type Expander struct{}

// Expand turns a template into ordered drafts, ascending by date.
//
// Single yields the one record at the start date. Installment yields
// exactly InstallmentCount records, one per month, each carrying an equal
// split of the total. Fixed yields one record per month from the start to
// the effective end date, skipping months before now's calendar month
// (a series created mid-period never back-fills missed months) and
// truncating silently at FixedSeriesCap occurrences.
func (Expander) Expand(userID string, tpl core.TransactionTemplate, now time.Time) ([]core.TransactionDraft, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	switch tpl.Recurrence {
	case core.Single:
		return []core.TransactionDraft{{
			UserID:      userID,
			Description: tpl.Description,
			Category:    tpl.Category,
			Kind:        tpl.Kind,
			Recurrence:  core.Single,
			Amount:      tpl.SignedAmount(),
			Date:        tpl.StartDate,
			IsScheduled: tpl.Scheduled,
		}}, nil

	case core.Installment:
		groupID := uuid.NewString()
		perPeriod := tpl.SignedAmount().Div(decimal.NewFromInt(int64(tpl.InstallmentCount)))
		drafts := make([]core.TransactionDraft, 0, tpl.InstallmentCount)
		for i := 0; i < tpl.InstallmentCount; i++ {
			drafts = append(drafts, core.TransactionDraft{
				UserID:       userID,
				GroupID:      groupID,
				SeriesIndex:  i + 1,
				SeriesLength: tpl.InstallmentCount,
				Description:  tpl.Description,
				Category:     tpl.Category,
				Kind:         tpl.Kind,
				Recurrence:   core.Installment,
				Amount:       perPeriod,
				Date:         core.AddMonthsSafe(tpl.StartDate, i),
				IsScheduled:  tpl.Scheduled,
			})
		}
		return drafts, nil

	case core.Fixed:
		groupID := uuid.NewString()
		end := tpl.EffectiveEndDate()
		today := core.DateOf(now)
		currentMonth := core.NewDate(today.Year(), today.Month(), 1)

		var drafts []core.TransactionDraft
		for step := 0; len(drafts) < core.FixedSeriesCap; step++ {
			date := core.AddMonthsSafe(tpl.StartDate, step)
			if date.After(end) {
				break
			}
			// Never back-fill months already behind us at creation time.
			if core.NewDate(date.Year(), date.Month(), 1).Before(currentMonth) {
				continue
			}
			drafts = append(drafts, core.TransactionDraft{
				UserID:      userID,
				GroupID:     groupID,
				SeriesIndex: len(drafts) + 1,
				Description: tpl.Description,
				Category:    tpl.Category,
				Kind:        tpl.Kind,
				Recurrence:  core.Fixed,
				Amount:      tpl.SignedAmount(),
				Date:        date,
				IsScheduled: tpl.Scheduled,
			})
		}
		return drafts, nil
	}

	return nil, core.ErrInvalidRecurrence
}
