package cli

import (
	"context"
	"fmt"

	"github.com/karasu-dev/score-ledger-system/internal/config"
	"github.com/karasu-dev/score-ledger-system/internal/interfaces"
	"github.com/karasu-dev/score-ledger-system/internal/storage/memory"
	"github.com/karasu-dev/score-ledger-system/internal/storage/postgres"
	"github.com/karasu-dev/score-ledger-system/internal/storage/sqlite"
)

// migrator is implemented by backends that create their own tables.
type migrator interface {
	Migrate(ctx context.Context) error
}

// openStore builds the ledger store the config selects. The returned
// close function is a no-op for the memory backend.
func openStore(cfg config.Config) (interfaces.LedgerStore, func() error, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		store, err := postgres.Open(cfg.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, store.Close, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, store.Close, nil
	case config.DriverMemory:
		return memory.NewMemoryLedgerStore(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown driver %q", cfg.DBDriver)
	}
}
