package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpamm/internal/amm"
	"cpamm/internal/config"
	"cpamm/internal/derive"
	"cpamm/internal/ledger"
	"cpamm/internal/replay"
	"cpamm/internal/storage"
	"cpamm/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	program, err := replay.ParseAddress(cfg.Program)
	if err != nil {
		return fmt.Errorf("program: %w", err)
	}
	balances, err := replay.ReadBalances(cfg.Balances)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store      amm.Store
		funder     replay.Funder
		checkpoint storage.Cursor
	)
	switch cfg.Store {
	case "memory":
		// Pool state is lost on exit, so every run starts from line one.
		mem := ledger.NewMemory()
		store, funder = mem, mem
	case "postgres":
		if cfg.PGDSN == "" {
			return fmt.Errorf("pg dsn is required for the postgres store")
		}
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		store, funder = pg, pg
		if cfg.Checkpoint != "" {
			checkpoint = &storage.FileCursor{Path: cfg.Checkpoint}
		} else {
			checkpoint = pg.Cursor(cfg.CheckpointName)
		}
	default:
		return fmt.Errorf("unknown store %q", cfg.Store)
	}

	engine := amm.NewEngine(program, store, amm.DeriverFunc(derive.Populate), logger)
	journal := storage.NewJsonlJournal(cfg.Receipts, cfg.Rejections)
	runner := replay.NewRunner(replay.RunConfig{
		InputPath:    cfg.Input,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		StopOnReject: cfg.StopOnReject,
		Balances:     balances,
	}, engine, funder, journal, checkpoint, logger)

	logger.Info("replay start",
		zap.String("input", cfg.Input),
		zap.String("program", program.Hex()),
		zap.String("store", cfg.Store),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("receipts", cfg.Receipts),
		zap.String("rejections", cfg.Rejections),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int("balances", len(balances)),
	)

	summary, err := runner.Run(ctx)
	logger.Info("replay finished",
		zap.Int("applied", summary.Applied),
		zap.Int("rejected", summary.Rejected),
		zap.Int("skipped", summary.Skipped),
		zap.Uint64("last_line", summary.LastLine),
	)
	return err
}
