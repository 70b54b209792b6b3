package store

import (
	"context"
	"errors"
	"time"

	"poupai/internal/core"
)

// ErrNotFound is returned when a record, profile, or deferral does not
// exist in the store.
var ErrNotFound = errors.New("not found")

// Ports for outbound adapters. The engine only talks to the ledger
// through these; persistence may live in SQLite, behind a remote REST
// API, or in memory.
type (
	// TransactionStore owns the persisted ledger entries.
	TransactionStore interface {
		// List returns every record belonging to a user, ordered by date.
		List(ctx context.Context, userID string) ([]core.TransactionRecord, error)
		// ListGroup returns the records of one series, ordered by series index.
		ListGroup(ctx context.Context, userID, groupID string) ([]core.TransactionRecord, error)
		// Create persists a draft and returns the record with its assigned ID.
		Create(ctx context.Context, draft core.TransactionDraft) (core.TransactionRecord, error)
		// DeleteByID removes a single entry.
		DeleteByID(ctx context.Context, id int64) error
		// DeleteByGroup removes a whole series. Implementations without
		// native group deletes fall back to one DeleteByID per record.
		DeleteByGroup(ctx context.Context, userID, groupID string) error
	}

	// ProfileStore holds the per-user settings read by the scheduling policy.
	ProfileStore interface {
		GetProfile(ctx context.Context, userID string) (core.Profile, error)
		SaveProfile(ctx context.Context, p core.Profile) error
		ListProfiles(ctx context.Context) ([]core.Profile, error)
	}

	// DeferralStore holds at most one pending salary deferral per user.
	DeferralStore interface {
		GetSalaryDeferral(ctx context.Context, userID string) (core.SalaryDeferral, error)
		SaveSalaryDeferral(ctx context.Context, d core.SalaryDeferral) error
		DeleteSalaryDeferral(ctx context.Context, userID string) error
	}

	// Ledger is the full storage surface the service layer needs.
	Ledger interface {
		TransactionStore
		ProfileStore
		DeferralStore
	}
)

// Clock abstracts "today" so every date-relative rule stays testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Test helper.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
