package backend

import (
	"context"

	"poupai/internal/store"
)

// CleanupFunc releases a backend's resources.
type CleanupFunc func() error

// Result holds the created ledger and its optional cleanup.
type Result struct {
	Ledger  store.Ledger
	Cleanup CleanupFunc
}

// Factory creates ledgers based on configuration.
type Factory interface {
	CreateLedger(ctx context.Context, config Config) (*Result, error)
}

// Config holds everything ledger creation needs, independent of the app
// config it was derived from.
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// REST specific; the remote API only covers transactions, so profiles
	// and deferrals still need a local SQLite path.
	RestBaseURL  string
	RestAPIToken string
}

// Type selects the storage backing the ledger.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	RestBackend   Type = "rest"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, RestBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Types returns all valid backend types.
func Types() []Type {
	return []Type{SQLiteBackend, RestBackend, MemoryBackend}
}
