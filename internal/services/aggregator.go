package services

import (
	"github.com/shopspring/decimal"

	"poupai/internal/core"
)

// KindTotals breaks a record set down by recurrence kind. Installment
// records contribute their per-period amount, never the original lump
// sum.
type KindTotals struct {
	Single      decimal.Decimal
	Fixed       decimal.Decimal
	Installment decimal.Decimal
}

// MonthSummary is the aggregate consumed by reporting for one month view.
type MonthSummary struct {
	Income     decimal.Decimal
	Expense    decimal.Decimal
	Balance    decimal.Decimal
	ByCategory map[string]decimal.Decimal
	ByKind     KindTotals
}

// Aggregator computes pure sums over an already-visible record set. It
// performs no filtering of scheduled records itself; callers apply
// VisibleRecords first.
type Aggregator struct {
	reconciler Reconciler
}

// Sum adds the amounts of every record matching the predicate. A nil
// predicate sums everything. Empty input yields zero.
func (Aggregator) Sum(records []core.TransactionRecord, pred func(core.TransactionRecord) bool) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if pred == nil || pred(r) {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// Totals returns the income and expense sums, both as positive values.
func (a Aggregator) Totals(records []core.TransactionRecord) (income, expense decimal.Decimal) {
	income = a.Sum(records, func(r core.TransactionRecord) bool { return r.Kind == core.Income })
	expense = a.Sum(records, func(r core.TransactionRecord) bool { return r.Kind == core.Expense }).Abs()
	return income, expense
}

// ByCategory sums per category. Iteration order is unspecified; the
// consumer sorts.
func (Aggregator) ByCategory(records []core.TransactionRecord) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range records {
		out[r.Category] = out[r.Category].Add(r.Amount)
	}
	return out
}

// ByRecurrenceKind sums per recurrence kind.
func (Aggregator) ByRecurrenceKind(records []core.TransactionRecord) KindTotals {
	var t KindTotals
	for _, r := range records {
		switch r.Recurrence {
		case core.Fixed:
			t.Fixed = t.Fixed.Add(r.Amount)
		case core.Installment:
			t.Installment = t.Installment.Add(r.Amount)
		default:
			t.Single = t.Single.Add(r.Amount)
		}
	}
	return t
}

// MonthRecords selects the records a "this month" view aggregates: the
// month's singles, plus exactly one record per fixed/installment group
// (its currently-due period), so a series never contributes the sum of
// all its periods to a single month.
func (a Aggregator) MonthRecords(records []core.TransactionRecord, year, month int, asOf core.Date) []core.TransactionRecord {
	var out []core.TransactionRecord
	groups := make(map[string][]core.TransactionRecord)

	for _, r := range records {
		if r.GroupID == "" {
			if r.Date.Year() == year && r.Date.Month() == month {
				out = append(out, r)
			}
			continue
		}
		groups[r.GroupID] = append(groups[r.GroupID], r)
	}

	for groupID, recs := range groups {
		s := BuildSeries(groupID, recs)
		// A series only appears in months it actually covers.
		first, last := s.Records[0].Date, s.Records[len(s.Records)-1].Date
		target := core.NewDate(year, month, 1)
		if core.MonthsBetween(first, target) < 0 || core.MonthsBetween(last, target) > 0 {
			continue
		}
		cur, err := a.reconciler.CurrentRecord(s, asOf)
		if err != nil {
			continue
		}
		out = append(out, cur)
	}
	return out
}

// Summarize produces the month aggregate over visible records.
func (a Aggregator) Summarize(records []core.TransactionRecord, year, month int, asOf core.Date) MonthSummary {
	visible := VisibleRecords(records, asOf)
	monthly := a.MonthRecords(visible, year, month, asOf)

	income, expense := a.Totals(monthly)
	return MonthSummary{
		Income:     income,
		Expense:    expense,
		Balance:    income.Sub(expense),
		ByCategory: a.ByCategory(monthly),
		ByKind:     a.ByRecurrenceKind(monthly),
	}
}
