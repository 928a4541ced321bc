package activity

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"cpamm/internal/model"
	"cpamm/internal/storage"
)

type collectSink struct {
	metrics []model.PoolWindowMetrics
	calls   int
}

func (c *collectSink) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	c.calls++
	c.metrics = append(c.metrics, metrics...)
	return nil
}

var (
	poolA = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	poolB = common.HexToAddress("0x00000000000000000000000000000000000000BB")
)

func swapEntry(line, ts uint64, pool common.Address, inX, outY, fee, rX, rY uint64) model.JournalEntry {
	dir := model.XToY
	return model.JournalEntry{Line: line, AppliedAt: ts, Receipt: model.Receipt{
		Op: model.OpSwap, Pool: pool, Seed: 1, Direction: &dir,
		AmountX: inX, AmountY: outY, FeeX: fee, ReserveX: rX, ReserveY: rY, Supply: 100,
	}}
}

func writeJournal(t *testing.T, entries ...model.JournalEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	require.NoError(t, storage.NewJsonlJournal(path, "").PutReceipts(entries))
	return path
}

func TestAggregatorWindows(t *testing.T) {
	path := writeJournal(t,
		model.JournalEntry{Line: 1, AppliedAt: 3600, Receipt: model.Receipt{Op: model.OpDeposit, Pool: poolA, Seed: 1, ReserveX: 1000, ReserveY: 1000, Supply: 1000}},
		swapEntry(2, 3700, poolA, 100, 90, 1, 1100, 910),
		swapEntry(3, 3800, poolA, 10, 8, 1, 1110, 902),
		swapEntry(4, 3900, poolB, 5, 4, 0, 50, 40),
		swapEntry(5, 7300, poolA, 20, 15, 2, 1130, 887),
	)
	sink := &collectSink{}
	state := &storage.FileCursor{Path: filepath.Join(t.TempDir(), "state.json")}
	agg := NewAggregator(Config{WindowSeconds: 3600, State: state}, sink, nil)

	require.NoError(t, agg.Run(context.Background(), path))
	require.Len(t, sink.metrics, 3)

	first := sink.metrics[0]
	require.Equal(t, poolKey(poolA.Hex()), first.PoolAddress)
	require.Equal(t, int64(3600), first.WindowStart.Unix())
	require.Equal(t, int64(7200), first.WindowEnd.Unix())
	require.Equal(t, uint64(2), first.SwapCount)
	require.Equal(t, uint64(1), first.DepositCount)
	require.Equal(t, "110", first.VolumeX)
	require.Equal(t, "98", first.VolumeY)
	require.Equal(t, "2", first.FeeX)
	require.Equal(t, "0", first.FeeY)
	require.Equal(t, uint64(1110), first.ReserveX)
	require.NotNil(t, first.FeeRateX)
	require.Nil(t, first.FeeRateY)

	byPool := map[string]model.PoolWindowMetrics{}
	for _, m := range sink.metrics[1:] {
		byPool[m.PoolAddress] = m
	}
	require.Equal(t, "20", byPool[poolKey(poolA.Hex())].VolumeX)
	require.Equal(t, int64(7200), byPool[poolKey(poolA.Hex())].WindowStart.Unix())
	require.Equal(t, uint64(1), byPool[poolKey(poolB.Hex())].SwapCount)
	require.Nil(t, byPool[poolKey(poolB.Hex())].FeeRateX)

	last, ok, err := state.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(7300), last)

	// Nothing newer than the saved state: no further windows.
	sink2 := &collectSink{}
	require.NoError(t, NewAggregator(Config{WindowSeconds: 3600, State: state}, sink2, nil).Run(context.Background(), path))
	require.Empty(t, sink2.metrics)
}

func TestAggregatorRecomputeFrom(t *testing.T) {
	path := writeJournal(t,
		swapEntry(1, 100, poolA, 10, 9, 1, 110, 91),
		swapEntry(2, 4000, poolA, 10, 9, 1, 120, 82),
	)
	sink := &collectSink{}
	require.NoError(t, NewAggregator(Config{WindowSeconds: 3600, RecomputeFrom: 3600}, sink, nil).Run(context.Background(), path))
	require.Len(t, sink.metrics, 1)
	require.Equal(t, int64(3600), sink.metrics[0].WindowStart.Unix())
}

func TestAggregatorRequiresWindow(t *testing.T) {
	err := NewAggregator(Config{}, &collectSink{}, nil).Run(context.Background(), "unused")
	require.ErrorContains(t, err, "window seconds")
}

func TestComputeFeeRate(t *testing.T) {
	acc := NewAccumulator(swapEntry(1, 1, poolA, 0, 0, 0, 0, 0), 0, 1)
	require.Nil(t, computeFeeRate(acc.FeeX, 100))
	acc.AddEntry(swapEntry(1, 1, poolA, 4, 3, 3, 1000, 10))
	rate := computeFeeRate(acc.FeeX, 1000)
	require.NotNil(t, rate)
	require.Equal(t, "0.003000000000000000", *rate)
}
