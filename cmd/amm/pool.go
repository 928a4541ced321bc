package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpamm/internal/amm"
	"cpamm/internal/config"
	"cpamm/internal/derive"
	"cpamm/internal/model"
	"cpamm/internal/replay"
	"cpamm/internal/storage/postgres"
)

type poolOutput struct {
	Config   model.PoolConfig `json:"config"`
	ReserveX uint64           `json:"reserve_x"`
	ReserveY uint64           `json:"reserve_y"`
	Supply   uint64           `json:"supply"`
}

func runPool(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadStore(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	program, err := replay.ParseAddress(cfg.Program)
	if err != nil {
		return fmt.Errorf("program: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	logger.Debug("pool lookup",
		zap.String("program", program.Hex()),
		zap.Uint64("seed", cfg.Seed),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	engine := amm.NewEngine(program, store, amm.DeriverFunc(derive.Populate), logger)
	snap, err := engine.Snapshot(ctx, cfg.Seed)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(poolOutput{
		Config:   snap.Config,
		ReserveX: snap.ReserveX,
		ReserveY: snap.ReserveY,
		Supply:   snap.Supply,
	})
}
