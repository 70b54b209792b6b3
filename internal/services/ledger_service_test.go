package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poupai/internal/core"
	"poupai/internal/store"
)

func TestCreateFromTemplateInstallment(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewLedgerService(mem, nil)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	records, err := svc.CreateFromTemplate(ctx, "u1", laptopTemplate(), now)
	require.NoError(t, err)
	require.Len(t, records, 12)

	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Amount)
		assert.Equal(t, records[0].GroupID, r.GroupID)
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(-1200)), "series sums to %s, want -1200", sum)
}

func TestCreateFromTemplateRejectsDuplicateDescription(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewLedgerService(mem, nil)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.CreateFromTemplate(ctx, "u1", laptopTemplate(), now)
	require.NoError(t, err)

	tpl := laptopTemplate()
	tpl.Recurrence = core.Single
	tpl.InstallmentCount = 0
	_, err = svc.CreateFromTemplate(ctx, "u1", tpl, now)
	assert.ErrorIs(t, err, core.ErrDuplicateDescription)

	// A similar but distinct description passes.
	tpl.Description = "Laptop Fixed"
	_, err = svc.CreateFromTemplate(ctx, "u1", tpl, now)
	assert.NoError(t, err)

	// Other users are unaffected.
	_, err = svc.CreateFromTemplate(ctx, "u2", laptopTemplate(), now)
	assert.NoError(t, err)
}

func TestCreateSalaryPostingSkipsDuplicateGuard(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewLedgerService(mem, nil)

	tpl := core.TransactionTemplate{
		Description: core.SalaryDescription,
		Amount:      decimal.NewFromInt(2500),
		Kind:        core.Income,
		Category:    core.SalaryCategory,
		Recurrence:  core.Single,
		StartDate:   date(2025, 5, 27),
	}
	_, err := svc.CreateSalaryPosting(ctx, "u1", tpl, time.Date(2025, 5, 27, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// Next month's posting carries the same description; the guard must
	// not apply.
	tpl.StartDate = date(2025, 6, 27)
	_, err = svc.CreateSalaryPosting(ctx, "u1", tpl, time.Date(2025, 6, 27, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	records, err := mem.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDeleteSeries(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewLedgerService(mem, nil)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	records, err := svc.CreateFromTemplate(ctx, "u1", laptopTemplate(), now)
	require.NoError(t, err)
	groupID := records[0].GroupID

	require.NoError(t, svc.DeleteSeries(ctx, "u1", groupID))

	remaining, err := mem.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	assert.ErrorIs(t, svc.DeleteSeries(ctx, "u1", groupID), core.ErrEmptySeries)
}

func TestRegenerateSeriesReplacesRecords(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewLedgerService(mem, nil)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	records, err := svc.CreateFromTemplate(ctx, "u1", laptopTemplate(), now)
	require.NoError(t, err)
	groupID := records[0].GroupID
	oldIDs := make(map[int64]bool, len(records))
	for _, r := range records {
		oldIDs[r.ID] = true
	}

	edited := laptopTemplate()
	edited.Amount = decimal.NewFromInt(600)
	edited.InstallmentCount = 6

	after, err := svc.RegenerateSeries(ctx, "u1", groupID, edited, now)
	require.NoError(t, err)
	require.Len(t, after, 6)

	sum := decimal.Zero
	for _, r := range after {
		assert.False(t, oldIDs[r.ID], "old record %d survived regeneration", r.ID)
		assert.Equal(t, groupID, r.GroupID, "record %d lost the series group", r.ID)
		sum = sum.Add(r.Amount)
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(-600)), "regenerated series sums to %s, want -600", sum)

	// The series stays addressable under its original group after the edit.
	regrouped, err := mem.ListGroup(ctx, "u1", groupID)
	require.NoError(t, err)
	assert.Len(t, regrouped, 6)
}

// flakyLedger wraps the memory store and starts failing writes after a
// fixed number of successful mutations.
type flakyLedger struct {
	*store.Memory
	mu     sync.Mutex
	budget int
}

var errStoreDown = errors.New("store down")

func (f *flakyLedger) spend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.budget <= 0 {
		return errStoreDown
	}
	f.budget--
	return nil
}

func (f *flakyLedger) Create(ctx context.Context, draft core.TransactionDraft) (core.TransactionRecord, error) {
	if err := f.spend(); err != nil {
		return core.TransactionRecord{}, err
	}
	return f.Memory.Create(ctx, draft)
}

func (f *flakyLedger) DeleteByID(ctx context.Context, id int64) error {
	if err := f.spend(); err != nil {
		return err
	}
	return f.Memory.DeleteByID(ctx, id)
}

func TestRegenerateSeriesPartialFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	seeded, err := NewLedgerService(mem, nil).CreateFromTemplate(ctx, "u1", laptopTemplate(), now)
	require.NoError(t, err)
	groupID := seeded[0].GroupID

	// Enough budget to finish the deletes but die mid-create.
	flaky := &flakyLedger{Memory: mem, budget: len(seeded) + 3}
	svc := NewLedgerService(flaky, nil)

	_, err = svc.RegenerateSeries(ctx, "u1", groupID, laptopTemplate(), now)
	require.Error(t, err)

	var partial *core.PartialRegenerationError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, groupID, partial.GroupID)
	assert.Equal(t, core.RegenCreatePhase, partial.Phase)
	assert.Equal(t, len(seeded), partial.Deleted)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestRegenerateSeriesFailureBeforeMutationIsRetryable(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	seeded, err := NewLedgerService(mem, nil).CreateFromTemplate(ctx, "u1", laptopTemplate(), now)
	require.NoError(t, err)
	groupID := seeded[0].GroupID

	// No budget at all: the first delete fails, nothing mutates.
	flaky := &flakyLedger{Memory: mem, budget: 0}
	svc := NewLedgerService(flaky, nil)

	_, err = svc.RegenerateSeries(ctx, "u1", groupID, laptopTemplate(), now)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)

	var partial *core.PartialRegenerationError
	assert.False(t, errors.As(err, &partial), "pre-mutation failure must not report partial regeneration")

	// The original series is intact.
	records, listErr := mem.ListGroup(ctx, "u1", groupID)
	require.NoError(t, listErr)
	assert.Len(t, records, len(seeded))
}

func TestListVisibleHidesScheduledFutureRecords(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewLedgerService(mem, nil)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tpl := core.TransactionTemplate{
		Description: "Insurance premium",
		Amount:      decimal.NewFromInt(300),
		Kind:        core.Expense,
		Category:    "Insurance",
		Recurrence:  core.Single,
		StartDate:   date(2025, 6, 20),
		Scheduled:   true,
	}
	_, err := svc.CreateFromTemplate(ctx, "u1", tpl, now)
	require.NoError(t, err)

	visible, err := svc.ListVisible(ctx, "u1", date(2025, 6, 15))
	require.NoError(t, err)
	assert.Empty(t, visible, "scheduled record leaked before its date")

	visible, err = svc.ListVisible(ctx, "u1", date(2025, 6, 20))
	require.NoError(t, err)
	assert.Len(t, visible, 1)
}

func TestDescribeSeries(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewLedgerService(mem, nil)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	records, err := svc.CreateFromTemplate(ctx, "u1", laptopTemplate(), now)
	require.NoError(t, err)
	groupID := records[0].GroupID

	view, err := svc.DescribeSeries(ctx, "u1", groupID, date(2025, 4, 20))
	require.NoError(t, err)

	assert.Equal(t, 12, view.Length)
	assert.Equal(t, 4, view.CurrentIndex)
	assert.Equal(t, 4, view.PaidCount)
	assert.Equal(t, 8, view.PendingCount)
	require.NotNil(t, view.NextDueDate)
	assert.Equal(t, "2025-05-15", view.NextDueDate.Input())
	assert.True(t, view.Drift.Clean(), "fresh series reported drift: %+v", view.Drift)
}

func TestDescribeSeriesEmptyGroup(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(store.NewMemory(), nil)

	_, err := svc.DescribeSeries(ctx, "u1", "missing-group", date(2025, 4, 20))
	assert.ErrorIs(t, err, core.ErrEmptySeries)
}
