package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/karasu-dev/score-ledger-system/internal/config"
	"github.com/karasu-dev/score-ledger-system/internal/events/kafka"
	"github.com/karasu-dev/score-ledger-system/internal/ledger"
	"github.com/karasu-dev/score-ledger-system/internal/quota"
	"github.com/karasu-dev/score-ledger-system/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the score ledger HTTP service",
		Long: `Start the score ledger HTTP service.

Configuration comes from the environment (a .env file in the working
directory is honored). SCORE_DB_DRIVER selects the backend: postgres,
sqlite or memory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []ledger.Option{ledger.WithLogger(logger)}
	if cfg.EnableCreditCap {
		opts = append(opts, ledger.WithCreditQuota(quota.NewDailyLimiter(cfg.DailyCreditCap)))
	}
	if cfg.EnableDebitCap {
		opts = append(opts, ledger.WithDebitQuota(quota.NewDailyLimiter(cfg.DailyDebitCap)))
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		opts = append(opts, ledger.WithPublisher(publisher))
	}

	ledgerService := ledger.NewLedger(store, opts...)
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(ledgerService, logger).Handler(),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("score ledger listening",
			"addr", cfg.ListenAddr, "driver", cfg.DBDriver,
			"credit_cap", cfg.EnableCreditCap, "debit_cap", cfg.EnableDebitCap)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
