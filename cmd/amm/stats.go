package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpamm/internal/activity"
	"cpamm/internal/config"
	"cpamm/internal/model"
	"cpamm/internal/storage"
	"cpamm/internal/storage/postgres"
)

// printSink writes metrics as JSON lines instead of persisting them.
type printSink struct {
	enc *json.Encoder
}

func newPrintSink(w io.Writer) *printSink {
	return &printSink{enc: json.NewEncoder(w)}
}

func (p *printSink) UpsertWindowMetrics(_ context.Context, metrics []model.PoolWindowMetrics) error {
	for _, m := range metrics {
		if err := p.enc.Encode(m); err != nil {
			return err
		}
	}
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadStats(cfgFile, cmd.Flags())
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

	windowDuration, err := time.ParseDuration(cfg.Window)
	if err != nil {
		return fmt.Errorf("invalid window: %w", err)
	}
	if windowDuration <= 0 {
		return fmt.Errorf("window must be positive")
	}
	windowSeconds := uint64(windowDuration.Seconds())
	if windowSeconds == 0 {
		return fmt.Errorf("window must be at least 1s")
	}

	recomputeFrom, err := config.ParseTimestamp(cfg.RecomputeFrom)
	if err != nil {
		return fmt.Errorf("parse recompute-from: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		sink       activity.Sink
		state      storage.Cursor
	)
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = store
		state = store.Cursor(fmt.Sprintf("%s:%d", cfg.StateName, windowSeconds))
	} else {
		sink = newPrintSink(cmd.OutOrStdout())
	}
	if cfg.StateFile != "" {
		state = &storage.FileCursor{Path: cfg.StateFile}
	}

	agg := activity.NewAggregator(activity.Config{
		WindowSeconds: windowSeconds,
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: recomputeFrom,
		State:         state,
	}, sink, logger)

	logger.Info("stats start",
		zap.String("input", cfg.Input),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint64("window_seconds", windowSeconds),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("recompute_from", recomputeFrom),
	)

	return agg.Run(ctx, cfg.Input)
}
