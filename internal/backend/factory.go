package backend

import (
	"context"
	"fmt"
	"log/slog"

	"poupai/internal/storage"
	"poupai/internal/store"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a ledger factory.
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateLedger(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteLedger(config)
	case RestBackend:
		return f.createRestLedger(config)
	case MemoryBackend:
		return f.createMemoryLedger()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteLedger(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite ledger", "db_path", config.SQLiteDBPath)
	return &Result{Ledger: repo, Cleanup: repo.Close}, nil
}

// restLedger serves transactions from the remote API while profiles and
// deferrals stay in the local repository.
type restLedger struct {
	store.TransactionStore
	store.ProfileStore
	store.DeferralStore
}

func (f *DefaultFactory) createRestLedger(config Config) (*Result, error) {
	if config.RestBaseURL == "" {
		return nil, fmt.Errorf("rest backend requires a base URL")
	}
	local, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize local repository: %w", err)
	}
	client := store.NewRestClient(config.RestBaseURL, config.RestAPIToken)

	f.logger.Info("Initialized REST ledger",
		"base_url", config.RestBaseURL,
		"local_db_path", config.SQLiteDBPath)
	return &Result{
		Ledger: restLedger{
			TransactionStore: client,
			ProfileStore:     local,
			DeferralStore:    local,
		},
		Cleanup: local.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryLedger() (*Result, error) {
	f.logger.Info("Initialized in-memory ledger")
	return &Result{Ledger: store.NewMemory()}, nil
}
