package services

import (
	"strings"

	"poupai/internal/core"
)

// EqualityPolicy decides whether two descriptions count as the same
// transaction. The default is deliberately coarse: trimmed,
// case-insensitive exact match, never fuzzy or substring, so that
// "Expense Test" and "Expense Test fixed" stay distinct while true
// duplicates are blocked.
type EqualityPolicy func(a, b string) bool

// ExactFoldEquality is the default equality policy.
func ExactFoldEquality(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// DuplicateGuard blocks double-posting before anything reaches the store.
type DuplicateGuard struct {
	Equals EqualityPolicy
}

// NewDuplicateGuard creates a guard with the default equality policy.
func NewDuplicateGuard() DuplicateGuard {
	return DuplicateGuard{Equals: ExactFoldEquality}
}

// IsDuplicateDescription reports whether the candidate description
// collides with any existing record. excludeID skips the record being
// edited; pass 0 for creations.
func (g DuplicateGuard) IsDuplicateDescription(candidate string, existing []core.TransactionRecord, excludeID int64) bool {
	eq := g.Equals
	if eq == nil {
		eq = ExactFoldEquality
	}
	for _, r := range existing {
		if excludeID != 0 && r.ID == excludeID {
			continue
		}
		if eq(candidate, r.Description) {
			return true
		}
	}
	return false
}

// IsVisible gates future-dated scheduled records everywhere: totals,
// lists, and charts all exclude a scheduled record until its date
// arrives. Everything else is always visible.
func IsVisible(r core.TransactionRecord, asOf core.Date) bool {
	if !r.IsScheduled {
		return true
	}
	return !r.Date.After(asOf)
}

// VisibleRecords filters a record list down to what asOf may see.
func VisibleRecords(records []core.TransactionRecord, asOf core.Date) []core.TransactionRecord {
	out := make([]core.TransactionRecord, 0, len(records))
	for _, r := range records {
		if IsVisible(r, asOf) {
			out = append(out, r)
		}
	}
	return out
}
