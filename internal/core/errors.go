package core

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySeries means an operation required an existing series but the
	// group id matched no records.
	ErrEmptySeries = errors.New("series has no records")

	// ErrDuplicateDescription means a create was rejected by the duplicate
	// guard before reaching the store.
	ErrDuplicateDescription = errors.New("a transaction with this description already exists")

	// ErrStoreUnavailable wraps store failures that happened before any
	// mutation of the logical operation; the whole operation is safe to
	// retry.
	ErrStoreUnavailable = errors.New("transaction store unavailable")
)

// RegenPhase identifies which half of a series regeneration failed.
type RegenPhase string

const (
	RegenDeletePhase RegenPhase = "delete"
	RegenCreatePhase RegenPhase = "create"
)

// PartialRegenerationError reports a series regeneration that failed after
// some mutations were already applied, leaving the store inconsistent
// (orphaned deletions or a half-created series). It is never recovered
// silently: callers must re-fetch and warn the user.
type PartialRegenerationError struct {
	GroupID string
	Phase   RegenPhase
	Deleted int
	Created int
	Err     error
}

func (e *PartialRegenerationError) Error() string {
	return fmt.Sprintf("series %s may be inconsistent: %s phase failed after %d deletes and %d creates: %v",
		e.GroupID, e.Phase, e.Deleted, e.Created, e.Err)
}

func (e *PartialRegenerationError) Unwrap() error {
	return e.Err
}
