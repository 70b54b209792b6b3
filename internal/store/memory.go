package store

import (
	"context"
	"sort"
	"sync"

	"poupai/internal/core"
)

// Memory is an in-process Ledger used by tests and the demo backend. All
// methods are safe for concurrent use.
type Memory struct {
	mu        sync.Mutex
	nextID    int64
	records   map[int64]core.TransactionRecord
	profiles  map[string]core.Profile
	deferrals map[string]core.SalaryDeferral
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		nextID:    1,
		records:   make(map[int64]core.TransactionRecord),
		profiles:  make(map[string]core.Profile),
		deferrals: make(map[string]core.SalaryDeferral),
	}
}

func (m *Memory) List(_ context.Context, userID string) ([]core.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.TransactionRecord
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) ListGroup(_ context.Context, userID, groupID string) ([]core.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.TransactionRecord
	for _, r := range m.records {
		if r.UserID == userID && r.GroupID == groupID && groupID != "" {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeriesIndex < out[j].SeriesIndex })
	return out, nil
}

func (m *Memory) Create(_ context.Context, draft core.TransactionDraft) (core.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := core.TransactionRecord{
		ID:           m.nextID,
		UserID:       draft.UserID,
		GroupID:      draft.GroupID,
		SeriesIndex:  draft.SeriesIndex,
		SeriesLength: draft.SeriesLength,
		Description:  draft.Description,
		Category:     draft.Category,
		Kind:         draft.Kind,
		Recurrence:   draft.Recurrence,
		Amount:       draft.Amount,
		Date:         draft.Date,
		IsScheduled:  draft.IsScheduled,
	}
	m.records[m.nextID] = rec
	m.nextID++
	return rec, nil
}

func (m *Memory) DeleteByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *Memory) DeleteByGroup(_ context.Context, userID, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.records {
		if r.UserID == userID && r.GroupID == groupID && groupID != "" {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *Memory) GetProfile(_ context.Context, userID string) (core.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return core.Profile{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) SaveProfile(_ context.Context, p core.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[p.UserID] = p
	return nil
}

func (m *Memory) ListProfiles(_ context.Context) ([]core.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *Memory) GetSalaryDeferral(_ context.Context, userID string) (core.SalaryDeferral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deferrals[userID]
	if !ok {
		return core.SalaryDeferral{}, ErrNotFound
	}
	return d, nil
}

func (m *Memory) SaveSalaryDeferral(_ context.Context, d core.SalaryDeferral) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deferrals[d.UserID] = d
	return nil
}

func (m *Memory) DeleteSalaryDeferral(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.deferrals, userID)
	return nil
}
