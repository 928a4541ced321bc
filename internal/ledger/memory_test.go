package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"cpamm/internal/amm"
	"cpamm/internal/model"
)

var (
	asset = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestMemoryTransfer(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Credit(ctx, asset, alice, 100))

	err := m.Atomic(ctx, func(l amm.Ledger) error {
		return l.Transfer(ctx, asset, alice, bob, 40)
	})
	require.NoError(t, err)
	require.Equal(t, uint64(60), m.Balance(asset, alice))
	require.Equal(t, uint64(40), m.Balance(asset, bob))

	err = m.Atomic(ctx, func(l amm.Ledger) error {
		return l.Transfer(ctx, asset, alice, bob, 61)
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestMemoryRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Credit(ctx, asset, alice, 100))
	boom := errors.New("boom")

	err := m.Atomic(ctx, func(l amm.Ledger) error {
		require.NoError(t, l.Transfer(ctx, asset, alice, bob, 50))
		require.NoError(t, l.Mint(ctx, asset, bob, 7))
		require.NoError(t, l.StoreConfig(ctx, model.PoolConfig{Seed: 1}))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, uint64(100), m.Balance(asset, alice))
	require.Zero(t, m.Balance(asset, bob))
	require.Zero(t, m.Supply(asset))
	require.Empty(t, m.Pools(common.Address{}))
}

func TestMemoryMintBurn(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	lp := common.HexToAddress("0x00000000000000000000000000000000000000c1")

	require.NoError(t, m.Atomic(ctx, func(l amm.Ledger) error {
		if err := l.Mint(ctx, lp, alice, 10); err != nil {
			return err
		}
		return l.Burn(ctx, lp, alice, 4)
	}))
	require.Equal(t, uint64(6), m.Supply(lp))
	require.Equal(t, uint64(6), m.Balance(lp, alice))

	err := m.Atomic(ctx, func(l amm.Ledger) error {
		return l.Burn(ctx, lp, bob, 1)
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, uint64(6), m.Supply(lp))
}

func TestMemoryConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	program := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	cfg := model.PoolConfig{Program: program, Seed: 9, Fee: 30, Authority: model.SomeAuthority(alice)}

	require.NoError(t, m.Atomic(ctx, func(l amm.Ledger) error {
		_, ok, err := l.LoadConfig(ctx, program, 9)
		require.NoError(t, err)
		require.False(t, ok)
		return l.StoreConfig(ctx, cfg)
	}))
	require.NoError(t, m.Atomic(ctx, func(l amm.Ledger) error {
		got, ok, err := l.LoadConfig(ctx, program, 9)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, cfg, got)
		return nil
	}))
	require.Len(t, m.Pools(program), 1)
}

func TestMemoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewMemory().Atomic(ctx, func(amm.Ledger) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}
