package postgres

import (
	"context"
	"crypto/rand"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"cpamm/internal/amm"
	"cpamm/internal/derive"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("AMM_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("AMM_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func randomAddress(t *testing.T) common.Address {
	t.Helper()
	var b [20]byte
	_, err := rand.Read(b[:])
	require.NoError(t, err)
	return common.BytesToAddress(b[:])
}

func TestStoreEngineLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	program := randomAddress(t)
	mintX, mintY := randomAddress(t), randomAddress(t)
	owner := randomAddress(t)
	require.NoError(t, store.Credit(ctx, mintX, owner, 1_000))
	require.NoError(t, store.Credit(ctx, mintY, owner, 1_000))

	engine := amm.NewEngine(program, store, amm.DeriverFunc(derive.Populate), nil)
	_, err := engine.Initialize(ctx, owner, amm.InitializeArgs{Seed: 1, MintX: mintX, MintY: mintY, Fee: 30})
	require.NoError(t, err)

	r, err := engine.Deposit(ctx, owner, 1, amm.DepositArgs{MaxX: 400, MaxY: 100})
	require.NoError(t, err)
	require.Equal(t, uint64(200), r.Shares)

	// 400 shares need 800 X but only 600 remain.
	_, err = engine.Deposit(ctx, owner, 1, amm.DepositArgs{MaxX: 800, MaxY: 1_000})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	snap, err := engine.Snapshot(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(400), snap.ReserveX)
	require.Equal(t, uint64(100), snap.ReserveY)
	require.Equal(t, uint64(200), snap.Supply)
	require.True(t, snap.Config.Authority.Permits(owner))

	none := model.NoAuthority()
	_, err = engine.Update(ctx, owner, 1, amm.UpdateArgs{Authority: &none})
	require.NoError(t, err)
	snap, err = engine.Snapshot(ctx, 1)
	require.NoError(t, err)
	require.False(t, snap.Config.Authority.IsSet())
}

func TestStoreReplayState(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	name := "test-" + randomAddress(t).Hex()

	_, ok, err := store.LoadState(ctx, name)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SaveState(ctx, name, 42))
	line, ok, err := store.LoadState(ctx, name)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), line)

	cursor := store.Cursor(name)
	require.NoError(t, cursor.Save(ctx, 43))
	pos, ok, err := cursor.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(43), pos)
}

func TestStoreUpsertWindowMetrics(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0).UTC()
	rate := "0.003"
	m := model.PoolWindowMetrics{
		PoolAddress:    randomAddress(t).Hex(),
		Seed:           1,
		WindowSizeSecs: 3600,
		WindowStart:    start,
		WindowEnd:      start.Add(time.Hour),
		SwapCount:      2,
		VolumeX:        "18446744073709551616",
		VolumeY:        "10",
		FeeX:           "3",
		FeeY:           "0",
		FeeRateX:       &rate,
		ReserveX:       100,
		ReserveY:       200,
		Supply:         141,
	}
	require.NoError(t, store.UpsertWindowMetrics(ctx, []model.PoolWindowMetrics{m}))
	m.SwapCount = 3
	require.NoError(t, store.UpsertWindowMetrics(ctx, []model.PoolWindowMetrics{m}))
}
