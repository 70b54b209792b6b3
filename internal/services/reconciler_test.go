package services

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"poupai/internal/core"
)

// laptopSeries materializes the 1200/12 laptop installment series into
// records with assigned IDs.
func laptopSeries(t *testing.T) Series {
	t.Helper()
	var e Expander
	drafts, err := e.Expand("u1", laptopTemplate(), time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	records := make([]core.TransactionRecord, 0, len(drafts))
	for i, d := range drafts {
		records = append(records, core.TransactionRecord{
			ID:           int64(i + 1),
			UserID:       d.UserID,
			GroupID:      d.GroupID,
			SeriesIndex:  d.SeriesIndex,
			SeriesLength: d.SeriesLength,
			Description:  d.Description,
			Category:     d.Category,
			Kind:         d.Kind,
			Recurrence:   d.Recurrence,
			Amount:       d.Amount,
			Date:         d.Date,
		})
	}
	return BuildSeries(records[0].GroupID, records)
}

func TestCurrentInstallmentIndex(t *testing.T) {
	var r Reconciler
	s := laptopSeries(t)

	tests := []struct {
		name string
		asOf core.Date
		want int
	}{
		{"before start clamps to first", date(2024, 10, 1), 1},
		{"start month", date(2025, 1, 20), 1},
		{"fourth month", date(2025, 4, 20), 4},
		{"fourth month before payment day", date(2025, 4, 2), 4},
		{"last month", date(2025, 12, 1), 12},
		{"after series end clamps to last", date(2026, 6, 1), 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.CurrentInstallmentIndex(s, tt.asOf)
			if err != nil {
				t.Fatalf("CurrentInstallmentIndex() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CurrentInstallmentIndex(%s) = %d, want %d", tt.asOf.Input(), got, tt.want)
			}
		})
	}
}

func TestCurrentInstallmentIndexEmptySeries(t *testing.T) {
	var r Reconciler
	if _, err := r.CurrentInstallmentIndex(Series{}, date(2025, 4, 20)); !errors.Is(err, core.ErrEmptySeries) {
		t.Errorf("CurrentInstallmentIndex() error = %v, want ErrEmptySeries", err)
	}
	if _, err := r.DetectDrift(Series{}, date(2025, 4, 20)); !errors.Is(err, core.ErrEmptySeries) {
		t.Errorf("DetectDrift() error = %v, want ErrEmptySeries", err)
	}
}

func TestCurrentRecord(t *testing.T) {
	var r Reconciler
	s := laptopSeries(t)

	rec, err := r.CurrentRecord(s, date(2025, 4, 20))
	if err != nil {
		t.Fatalf("CurrentRecord() error = %v", err)
	}
	if rec.SeriesIndex != 4 {
		t.Errorf("CurrentRecord().SeriesIndex = %d, want 4", rec.SeriesIndex)
	}
	if !core.SameDay(rec.Date, date(2025, 4, 15)) {
		t.Errorf("CurrentRecord().Date = %s, want 2025-04-15", rec.Date.Input())
	}
}

func TestNextDueDate(t *testing.T) {
	var r Reconciler
	s := laptopSeries(t)

	next := r.NextDueDate(s, date(2025, 4, 20))
	if next == nil {
		t.Fatal("NextDueDate() = nil, want 2025-05-15")
	}
	if !core.SameDay(*next, date(2025, 5, 15)) {
		t.Errorf("NextDueDate() = %s, want 2025-05-15", next.Input())
	}

	if got := r.NextDueDate(s, date(2025, 12, 20)); got != nil {
		t.Errorf("NextDueDate() past series end = %s, want nil", got.Input())
	}
}

func TestPaidAndPendingCounts(t *testing.T) {
	s := laptopSeries(t)
	asOf := date(2025, 4, 20)

	if got := s.PaidCount(asOf); got != 4 {
		t.Errorf("PaidCount() = %d, want 4", got)
	}
	if got := s.PendingCount(asOf); got != 8 {
		t.Errorf("PendingCount() = %d, want 8", got)
	}
}

func TestDetectDriftCleanSeries(t *testing.T) {
	var r Reconciler
	s := laptopSeries(t)

	d, err := r.DetectDrift(s, date(2025, 4, 20))
	if err != nil {
		t.Fatalf("DetectDrift() error = %v", err)
	}
	if !d.Clean() {
		t.Errorf("DetectDrift() = %+v, want clean", d)
	}
}

func TestDetectDriftToleratesOnePeriodGap(t *testing.T) {
	// Between the month boundary and the payment day the index leads the
	// paid count by one; that is normal operation, not drift.
	var r Reconciler
	s := laptopSeries(t)

	d, err := r.DetectDrift(s, date(2025, 4, 2))
	if err != nil {
		t.Fatalf("DetectDrift() error = %v", err)
	}
	if d.IndexMismatch {
		t.Error("DetectDrift() flagged IndexMismatch one day into the period")
	}
}

func TestDetectDriftMissingPeriods(t *testing.T) {
	var r Reconciler
	full := laptopSeries(t)

	var records []core.TransactionRecord
	for _, rec := range full.Records {
		if rec.SeriesIndex == 3 || rec.SeriesIndex == 4 {
			continue
		}
		records = append(records, rec)
	}
	s := BuildSeries(full.GroupID, records)
	s.Length = full.Length

	d, err := r.DetectDrift(s, date(2025, 4, 20))
	if err != nil {
		t.Fatalf("DetectDrift() error = %v", err)
	}
	if !d.IndexMismatch {
		t.Error("DetectDrift() IndexMismatch = false, want true with two periods missing")
	}
	if !slices.Contains(d.MissingPeriods, "2025-03") || !slices.Contains(d.MissingPeriods, "2025-04") {
		t.Errorf("DetectDrift() MissingPeriods = %v, want 2025-03 and 2025-04", d.MissingPeriods)
	}
}

func TestDetectDriftDuplicatePeriods(t *testing.T) {
	var r Reconciler
	full := laptopSeries(t)

	extra := full.Records[1]
	extra.ID = 99
	s := BuildSeries(full.GroupID, append(slices.Clone(full.Records), extra))
	s.Length = full.Length

	d, err := r.DetectDrift(s, date(2025, 4, 20))
	if err != nil {
		t.Fatalf("DetectDrift() error = %v", err)
	}
	if !slices.Contains(d.DuplicatePeriods, "2025-02") {
		t.Errorf("DetectDrift() DuplicatePeriods = %v, want 2025-02", d.DuplicatePeriods)
	}
}

func TestRegenerateReplacesWholeSeries(t *testing.T) {
	var r Reconciler
	s := laptopSeries(t)
	now := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)

	// The edit halves the amount and shortens the series.
	tpl := laptopTemplate()
	tpl.Amount = decimal.NewFromInt(600)
	tpl.InstallmentCount = 6

	plan, err := r.Regenerate("u1", s.GroupID, s.Records, tpl, now)
	if err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}

	if len(plan.ToDelete) != 12 {
		t.Errorf("plan.ToDelete has %d ids, want 12", len(plan.ToDelete))
	}

	// The replacement series must stay addressable under the same group.
	for i, draft := range plan.ToCreate {
		if draft.GroupID != s.GroupID {
			t.Errorf("plan.ToCreate[%d].GroupID = %q, want %q", i, draft.GroupID, s.GroupID)
		}
	}
	for _, rec := range s.Records {
		if !slices.Contains(plan.ToDelete, rec.ID) {
			t.Errorf("plan.ToDelete missing record %d", rec.ID)
		}
	}

	// The create set must equal a fresh expansion of the edited template.
	var e Expander
	fresh, err := e.Expand("u1", tpl, now)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(plan.ToCreate) != len(fresh) {
		t.Fatalf("plan.ToCreate has %d drafts, want %d", len(plan.ToCreate), len(fresh))
	}
	for i := range fresh {
		got, want := plan.ToCreate[i], fresh[i]
		if !got.Amount.Equal(want.Amount) || !core.SameDay(got.Date, want.Date) || got.SeriesIndex != want.SeriesIndex {
			t.Errorf("plan.ToCreate[%d] = {%s %s %d}, want {%s %s %d}",
				i, got.Amount, got.Date.Input(), got.SeriesIndex,
				want.Amount, want.Date.Input(), want.SeriesIndex)
		}
	}
}

func TestRegenerateEmptyGroupIsPureCreation(t *testing.T) {
	var r Reconciler
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	plan, err := r.Regenerate("u1", "grp-new", nil, laptopTemplate(), now)
	if err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	if len(plan.ToDelete) != 0 {
		t.Errorf("plan.ToDelete has %d ids, want 0", len(plan.ToDelete))
	}
	if len(plan.ToCreate) != 12 {
		t.Errorf("plan.ToCreate has %d drafts, want 12", len(plan.ToCreate))
	}
}

func TestBuildSeriesSortsAndDerivesLength(t *testing.T) {
	full := laptopSeries(t)

	shuffled := slices.Clone(full.Records)
	slices.Reverse(shuffled)
	s := BuildSeries(full.GroupID, shuffled)

	if !core.SameDay(s.StartDate, date(2025, 1, 15)) {
		t.Errorf("StartDate = %s, want 2025-01-15", s.StartDate.Input())
	}
	if s.Length != 12 {
		t.Errorf("Length = %d, want 12", s.Length)
	}
	for i := 1; i < len(s.Records); i++ {
		if s.Records[i].Date.Before(s.Records[i-1].Date) {
			t.Fatalf("records not sorted by date at index %d", i)
		}
	}
}
