package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"poupai/internal/amqp"
	"poupai/internal/core"
	"poupai/internal/store"
)

// regenConcurrency bounds parallel store calls within one phase of a
// regeneration. Phases themselves never overlap: every delete completes
// before the first create is issued, so old and new series never coexist.
const regenConcurrency = 4

// LedgerService orchestrates the recurrence engine against the store:
// expansion on create, full-series regeneration on edit, and event
// publishing for downstream consumers.
type LedgerService struct {
	ledger     store.Ledger
	amqpClient *amqp.Client
	expander   Expander
	reconciler Reconciler
	guard      DuplicateGuard
}

// NewLedgerService creates the service. amqpClient may be nil; events are
// then skipped.
func NewLedgerService(ledger store.Ledger, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		ledger:     ledger,
		amqpClient: amqpClient,
		guard:      NewDuplicateGuard(),
	}
}

// Reconciler exposes the service's reconciler for read-only series
// queries.
func (s *LedgerService) Reconciler() Reconciler {
	return s.reconciler
}

// CreateFromTemplate validates a template, rejects duplicates, expands it
// and persists every resulting record. It returns the authoritative
// record list re-fetched after the mutation.
func (s *LedgerService) CreateFromTemplate(ctx context.Context, userID string, tpl core.TransactionTemplate, now time.Time) ([]core.TransactionRecord, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.ledger.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list before create: %v", core.ErrStoreUnavailable, err)
	}
	if s.guard.IsDuplicateDescription(tpl.Description, existing, 0) {
		return nil, core.ErrDuplicateDescription
	}

	return s.createExpansion(ctx, userID, tpl, now, amqp.EventTransactionCreated)
}

// CreateSalaryPosting persists the automatic salary record. The duplicate
// guard is skipped: salary idempotency is the month-triple rule owned by
// the scheduling policy, and last month's "Salary" row must not block
// this month's.
func (s *LedgerService) CreateSalaryPosting(ctx context.Context, userID string, tpl core.TransactionTemplate, now time.Time) ([]core.TransactionRecord, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	return s.createExpansion(ctx, userID, tpl, now, amqp.EventSalaryPosted)
}

func (s *LedgerService) createExpansion(ctx context.Context, userID string, tpl core.TransactionTemplate, now time.Time, event string) ([]core.TransactionRecord, error) {
	drafts, err := s.expander.Expand(userID, tpl, now)
	if err != nil {
		return nil, err
	}

	created := make([]core.TransactionRecord, 0, len(drafts))
	for _, draft := range drafts {
		rec, err := s.ledger.Create(ctx, draft)
		if err != nil {
			if len(created) == 0 {
				return nil, fmt.Errorf("%w: create: %v", core.ErrStoreUnavailable, err)
			}
			return nil, &core.PartialRegenerationError{
				GroupID: draft.GroupID,
				Phase:   core.RegenCreatePhase,
				Created: len(created),
				Err:     err,
			}
		}
		created = append(created, rec)
	}

	s.publish(ctx, event, userID, func(m *amqp.LedgerEventMessage) {
		m.Count = len(created)
		if len(created) > 0 {
			m.GroupID = created[0].GroupID
			m.RecordID = created[0].ID
		}
	})

	slog.InfoContext(ctx, "Transactions created",
		"user_id", userID,
		"recurrence", string(tpl.Recurrence),
		"records", len(created))

	// Re-fetch so callers aggregate over the store's view, not ours.
	records, err := s.ledger.List(ctx, userID)
	if err != nil {
		return created, fmt.Errorf("refetch after create: %w", err)
	}
	return records, nil
}

// DeleteRecord removes one ledger entry.
func (s *LedgerService) DeleteRecord(ctx context.Context, userID string, id int64) error {
	if err := s.ledger.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.publish(ctx, amqp.EventTransactionDeleted, userID, func(m *amqp.LedgerEventMessage) {
		m.RecordID = id
	})
	return nil
}

// DeleteSeries removes every record in a group.
func (s *LedgerService) DeleteSeries(ctx context.Context, userID, groupID string) error {
	records, err := s.ledger.ListGroup(ctx, userID, groupID)
	if err != nil {
		return fmt.Errorf("%w: list group: %v", core.ErrStoreUnavailable, err)
	}
	if len(records) == 0 {
		return core.ErrEmptySeries
	}
	if err := s.ledger.DeleteByGroup(ctx, userID, groupID); err != nil {
		return fmt.Errorf("delete series %s: %w", groupID, err)
	}
	s.publish(ctx, amqp.EventTransactionDeleted, userID, func(m *amqp.LedgerEventMessage) {
		m.GroupID = groupID
		m.Count = len(records)
	})
	return nil
}

// RegenerateSeries replaces an edited series wholesale: every existing
// record in the group is deleted, then the new template's expansion is
// created, and the authoritative list is re-fetched. The delete phase
// fully completes before the create phase starts so the aggregator never
// sees both series at once. A failure after the first mutation surfaces
// as PartialRegenerationError and is never retried silently.
func (s *LedgerService) RegenerateSeries(ctx context.Context, userID, groupID string, tpl core.TransactionTemplate, now time.Time) ([]core.TransactionRecord, error) {
	existing, err := s.ledger.ListGroup(ctx, userID, groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: list group: %v", core.ErrStoreUnavailable, err)
	}

	plan, err := s.reconciler.Regenerate(userID, groupID, existing, tpl, now)
	if err != nil {
		return nil, err
	}

	var deleted, created atomic.Int64

	var g errgroup.Group
	g.SetLimit(regenConcurrency)
	gctx := ctx
	for _, id := range plan.ToDelete {
		g.Go(func() error {
			if err := s.ledger.DeleteByID(gctx, id); err != nil {
				return fmt.Errorf("delete record %d: %w", id, err)
			}
			deleted.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if deleted.Load() == 0 {
			return nil, fmt.Errorf("%w: regenerate delete phase: %v", core.ErrStoreUnavailable, err)
		}
		return nil, &core.PartialRegenerationError{
			GroupID: groupID,
			Phase:   core.RegenDeletePhase,
			Deleted: int(deleted.Load()),
			Err:     err,
		}
	}

	var cg errgroup.Group
	cg.SetLimit(regenConcurrency)
	for _, draft := range plan.ToCreate {
		cg.Go(func() error {
			if _, err := s.ledger.Create(gctx, draft); err != nil {
				return fmt.Errorf("create record for %s: %w", draft.Date.Input(), err)
			}
			created.Add(1)
			return nil
		})
	}
	if err := cg.Wait(); err != nil {
		return nil, &core.PartialRegenerationError{
			GroupID: groupID,
			Phase:   core.RegenCreatePhase,
			Deleted: int(deleted.Load()),
			Created: int(created.Load()),
			Err:     err,
		}
	}

	s.publish(ctx, amqp.EventSeriesRegenerated, userID, func(m *amqp.LedgerEventMessage) {
		m.GroupID = groupID
		m.Count = len(plan.ToCreate)
	})

	slog.InfoContext(ctx, "Series regenerated",
		"user_id", userID,
		"group_id", groupID,
		"deleted", len(plan.ToDelete),
		"created", len(plan.ToCreate))

	records, err := s.ledger.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("refetch after regenerate: %w", err)
	}
	return records, nil
}

// SeriesView is the read model for one series.
type SeriesView struct {
	GroupID      string
	Length       int
	PaidCount    int
	PendingCount int
	CurrentIndex int
	NextDueDate  *core.Date
	Drift        Drift
	Records      []core.TransactionRecord
}

// DescribeSeries builds the read model rendered by series endpoints.
func (s *LedgerService) DescribeSeries(ctx context.Context, userID, groupID string, asOf core.Date) (SeriesView, error) {
	records, err := s.ledger.ListGroup(ctx, userID, groupID)
	if err != nil {
		return SeriesView{}, fmt.Errorf("%w: list group: %v", core.ErrStoreUnavailable, err)
	}
	series := BuildSeries(groupID, records)

	idx, err := s.reconciler.CurrentInstallmentIndex(series, asOf)
	if err != nil {
		return SeriesView{}, err
	}
	drift, err := s.reconciler.DetectDrift(series, asOf)
	if err != nil {
		return SeriesView{}, err
	}

	return SeriesView{
		GroupID:      groupID,
		Length:       series.Length,
		PaidCount:    series.PaidCount(asOf),
		PendingCount: series.PendingCount(asOf),
		CurrentIndex: idx,
		NextDueDate:  s.reconciler.NextDueDate(series, asOf),
		Drift:        drift,
		Records:      series.Records,
	}, nil
}

// ListVisible returns the user's records visible as of the given date.
func (s *LedgerService) ListVisible(ctx context.Context, userID string, asOf core.Date) ([]core.TransactionRecord, error) {
	records, err := s.ledger.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", core.ErrStoreUnavailable, err)
	}
	return VisibleRecords(records, asOf), nil
}

// Summarize aggregates one month over the user's visible records.
func (s *LedgerService) Summarize(ctx context.Context, userID string, year, month int, asOf core.Date) (MonthSummary, error) {
	records, err := s.ledger.List(ctx, userID)
	if err != nil {
		return MonthSummary{}, fmt.Errorf("%w: list: %v", core.ErrStoreUnavailable, err)
	}
	var agg Aggregator
	return agg.Summarize(records, year, month, asOf), nil
}

func (s *LedgerService) publish(ctx context.Context, event, userID string, fill func(*amqp.LedgerEventMessage)) {
	if s.amqpClient == nil {
		return
	}
	msg := amqp.NewLedgerEventMessage(event, userID)
	if fill != nil {
		fill(msg)
	}
	if err := s.amqpClient.PublishLedgerEvent(ctx, msg); err != nil {
		// Events are best effort; the ledger mutation already succeeded.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event", event,
			"user_id", userID,
			"error", err)
	}
}
