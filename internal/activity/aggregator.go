// Package activity rolls journaled receipts up into per-pool window metrics.
package activity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"cpamm/internal/model"
	"cpamm/internal/storage"
)

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	State         storage.Cursor
}

// Sink receives completed window metrics.
type Sink interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Aggregator aggregates receipts into pool window metrics.
type Aggregator struct {
	cfg          Config
	sink         Sink
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, sink Sink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run aggregates a receipts journal file.
func (a *Aggregator) Run(ctx context.Context, journalPath string) error {
	if a.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, windows, skipped int

	err = storage.ReadJournal(journalPath, func(entry model.JournalEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		total++
		if entry.AppliedAt <= startTs {
			skipped++
			return nil
		}

		start := windowStart(entry.AppliedAt, a.cfg.WindowSeconds)
		key := poolKey(entry.Receipt.Pool.Hex())
		acc := a.accumulators[key]
		if acc != nil && acc.WindowStart != start {
			batch = append(batch, a.metrics(acc))
			windows++
			acc = nil
		}
		if acc == nil {
			acc = NewAccumulator(entry, start, start+a.cfg.WindowSeconds)
			a.accumulators[key] = acc
		}
		acc.AddEntry(entry)

		if entry.AppliedAt > maxTs {
			maxTs = entry.AppliedAt
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
				return fmt.Errorf("upsert metrics: %w", err)
			}
			batch = batch[:0]
			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(a.accumulators))
	for key := range a.accumulators {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		batch = append(batch, a.metrics(a.accumulators[key]))
		windows++
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
			return fmt.Errorf("upsert metrics: %w", err)
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
	)
	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.State == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.State.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState records the newest timestamp below every still-open window so a
// restart recomputes those windows in full.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.State == nil {
		return nil
	}
	if len(a.accumulators) == 0 {
		return a.cfg.State.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs = safeTs - 1
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.State.Save(ctx, safeTs)
}

func (a *Aggregator) metrics(acc *Accumulator) model.PoolWindowMetrics {
	return model.PoolWindowMetrics{
		PoolAddress:    acc.PoolAddress,
		Seed:           acc.Seed,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		DepositCount:   acc.DepositCount,
		WithdrawCount:  acc.WithdrawCount,
		VolumeX:        acc.VolumeX.ToBig().String(),
		VolumeY:        acc.VolumeY.ToBig().String(),
		FeeX:           acc.FeeX.ToBig().String(),
		FeeY:           acc.FeeY.ToBig().String(),
		FeeRateX:       computeFeeRate(acc.FeeX, acc.ReserveX),
		FeeRateY:       computeFeeRate(acc.FeeY, acc.ReserveY),
		ReserveX:       acc.ReserveX,
		ReserveY:       acc.ReserveY,
		Supply:         acc.Supply,
	}
}
