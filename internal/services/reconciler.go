package services

import (
	"sort"
	"time"

	"poupai/internal/core"
)

// Series is the derived view over the records sharing a group id. It is
// never persisted; build one from the store's records when needed.
type Series struct {
	GroupID   string
	StartDate core.Date
	// Length is the declared series length for installments, or the
	// record count for open-ended fixed series.
	Length  int
	Records []core.TransactionRecord
}

// Reconciler answers "what does this series look like" queries and plans
// full-series regeneration after an edit.
type Reconciler struct {
	expander Expander
}

// RegenerationPlan is the replace-set for an edited series: delete every
// existing record, then create the fresh expansion.
type RegenerationPlan struct {
	ToDelete []int64
	ToCreate []core.TransactionDraft
}

// BuildSeries assembles the derived series view from a group's records,
// sorted by date.
func BuildSeries(groupID string, records []core.TransactionRecord) Series {
	sorted := make([]core.TransactionRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date.Time) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].SeriesIndex < sorted[j].SeriesIndex
	})

	s := Series{GroupID: groupID, Records: sorted}
	if len(sorted) > 0 {
		s.StartDate = sorted[0].Date
		s.Length = len(sorted)
		if sorted[0].SeriesLength > 0 {
			s.Length = sorted[0].SeriesLength
		}
	}
	return s
}

// PaidCount counts records whose date is on or before asOf.
func (s Series) PaidCount(asOf core.Date) int {
	n := 0
	for _, r := range s.Records {
		if !r.Date.After(asOf) {
			n++
		}
	}
	return n
}

// PendingCount counts records still in the future relative to asOf.
func (s Series) PendingCount(asOf core.Date) int {
	return len(s.Records) - s.PaidCount(asOf)
}

// CurrentInstallmentIndex derives which period is "this month's" from
// elapsed months alone: clamp(monthsBetween(start, asOf)+1, 1, length).
// Under normal operation it equals PaidCount; a mismatch signals drift.
func (r Reconciler) CurrentInstallmentIndex(s Series, asOf core.Date) (int, error) {
	if len(s.Records) == 0 {
		return 0, core.ErrEmptySeries
	}
	idx := core.MonthsBetween(s.StartDate, asOf) + 1
	if idx < 1 {
		idx = 1
	}
	if idx > s.Length {
		idx = s.Length
	}
	return idx, nil
}

// CurrentRecord returns the record representing the currently-due period,
// the one list views show for the whole group.
func (r Reconciler) CurrentRecord(s Series, asOf core.Date) (core.TransactionRecord, error) {
	idx, err := r.CurrentInstallmentIndex(s, asOf)
	if err != nil {
		return core.TransactionRecord{}, err
	}
	for _, rec := range s.Records {
		if rec.SeriesIndex == idx {
			return rec, nil
		}
	}
	// Drifted series may be missing the exact index; fall back to the
	// positional record.
	return s.Records[min(idx, len(s.Records))-1], nil
}

// NextDueDate returns the earliest record date strictly after asOf, or
// nil once the series is exhausted.
func (r Reconciler) NextDueDate(s Series, asOf core.Date) *core.Date {
	for _, rec := range s.Records {
		if rec.Date.After(asOf) {
			d := rec.Date
			return &d
		}
	}
	return nil
}

// Drift describes how a persisted series diverges from its expected
// month-per-period shape.
type Drift struct {
	// IndexMismatch is set when the derived current index disagrees with
	// the paid count.
	IndexMismatch bool
	// MissingPeriods are expected "YYYY-MM" periods with no record.
	MissingPeriods []string
	// DuplicatePeriods are periods holding more than one record.
	DuplicatePeriods []string
}

// Clean reports whether no drift was detected.
func (d Drift) Clean() bool {
	return !d.IndexMismatch && len(d.MissingPeriods) == 0 && len(d.DuplicatePeriods) == 0
}

// DetectDrift compares the persisted records against the expected one
// record per calendar month starting at the series start.
func (r Reconciler) DetectDrift(s Series, asOf core.Date) (Drift, error) {
	if len(s.Records) == 0 {
		return Drift{}, core.ErrEmptySeries
	}

	var d Drift
	idx, err := r.CurrentInstallmentIndex(s, asOf)
	if err != nil {
		return Drift{}, err
	}
	paid := s.PaidCount(asOf)
	// The derived index legitimately leads the paid count by one between
	// the month boundary and the payment day, and a fully elapsed series
	// has paid > index. Anything beyond that is drift.
	d.IndexMismatch = paid <= s.Length && (idx-paid > 1 || paid-idx > 1)

	seen := make(map[string]int, len(s.Records))
	for _, rec := range s.Records {
		period := rec.Date.Format("2006-01")
		seen[period]++
	}
	for i := 0; i < s.Length; i++ {
		period := core.AddMonthsSafe(s.StartDate, i).Format("2006-01")
		switch n := seen[period]; {
		case n == 0:
			d.MissingPeriods = append(d.MissingPeriods, period)
		case n > 1:
			d.DuplicatePeriods = append(d.DuplicatePeriods, period)
		}
	}
	return d, nil
}

// Regenerate computes the full replace-set for an edited series. The old
// records are never diffed against the new template: everything goes, and
// the template re-expands from scratch, so the series always matches its
// template exactly. The replacement drafts keep the existing groupID so
// the series stays addressable across the edit. With no existing records
// this degrades to a pure creation.
func (r Reconciler) Regenerate(userID, groupID string, existing []core.TransactionRecord, tpl core.TransactionTemplate, now time.Time) (RegenerationPlan, error) {
	drafts, err := r.expander.Expand(userID, tpl, now)
	if err != nil {
		return RegenerationPlan{}, err
	}
	for i := range drafts {
		drafts[i].GroupID = groupID
	}

	plan := RegenerationPlan{ToCreate: drafts}
	for _, rec := range existing {
		plan.ToDelete = append(plan.ToDelete, rec.ID)
	}
	return plan, nil
}
