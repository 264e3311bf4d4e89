package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/karasu-dev/score-ledger-system/internal/config"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the balances and score_log tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			m, ok := store.(migrator)
			if !ok {
				// The memory backend has no schema.
				slog.Info("nothing to migrate", "driver", cfg.DBDriver)
				return nil
			}
			if err := m.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate %s: %w", cfg.DBDriver, err)
			}

			slog.Info("migration complete", "driver", cfg.DBDriver)
			return nil
		},
	}
}
