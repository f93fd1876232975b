// walletd runs the wallet reconciliation daemon: it connects the durable
// stores and sweeps abandoned transfers on the configured cadence. The
// transfer engine itself is a library surface; callers embed
// internal/transfer behind whatever transport they already run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nile-pay/nile_pay/internal/config"
	"github.com/nile-pay/nile_pay/internal/infra"
	"github.com/nile-pay/nile_pay/internal/ledger"
	"github.com/nile-pay/nile_pay/internal/logging"
	"github.com/nile-pay/nile_pay/internal/sweeper"
	"github.com/nile-pay/nile_pay/internal/transaction"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	wallets := ledger.NewPostgresStore(db)
	txns := transaction.NewPostgresStore(db)

	swp := sweeper.New(txns, wallets, logger, sweeper.Config{
		Interval:   cfg.SweepInterval,
		PageSize:   cfg.SweepPageSize,
		StaleGrace: cfg.SweepStaleGrace,
	})

	logger.Info("reconciliation daemon started",
		"env", cfg.AppEnv,
		"interval", cfg.SweepInterval.String(),
		"page_size", cfg.SweepPageSize)

	// Catch up immediately on restart instead of waiting a full interval.
	if err := swp.RunSweep(ctx); err != nil {
		logger.Error("startup sweep failed", "error", err)
	}

	swp.Start(ctx)

	logger.Info("daemon exited cleanly")
}
