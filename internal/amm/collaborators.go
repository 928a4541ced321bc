package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/model"
)

// Custody holds asset balances and executes transfers between accounts.
type Custody interface {
	BalanceOf(ctx context.Context, asset, account common.Address) (uint64, error)
	Transfer(ctx context.Context, asset, from, to common.Address, amount uint64) error
}

// ShareToken issues and burns pool shares.
type ShareToken interface {
	Mint(ctx context.Context, token, to common.Address, amount uint64) error
	Burn(ctx context.Context, token, from common.Address, amount uint64) error
	TotalSupply(ctx context.Context, token common.Address) (uint64, error)
}

// ConfigStore persists pool records keyed by (program, seed).
type ConfigStore interface {
	LoadConfig(ctx context.Context, program common.Address, seed uint64) (model.PoolConfig, bool, error)
	StoreConfig(ctx context.Context, cfg model.PoolConfig) error
}

// Ledger is the transactional view handed to an operation.
type Ledger interface {
	Custody
	ShareToken
	ConfigStore
}

// Store runs fn against a ledger and commits only if fn returns nil.
type Store interface {
	Atomic(ctx context.Context, fn func(Ledger) error) error
}

// Deriver fills the derived identity fields of a new pool record.
type Deriver interface {
	Populate(cfg model.PoolConfig) model.PoolConfig
}

// DeriverFunc adapts a plain function to Deriver.
type DeriverFunc func(cfg model.PoolConfig) model.PoolConfig

func (f DeriverFunc) Populate(cfg model.PoolConfig) model.PoolConfig {
	return f(cfg)
}
