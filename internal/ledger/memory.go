// Package ledger holds pool records, asset balances and share supply in memory.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/amm"
	"cpamm/internal/fixed"
	"cpamm/internal/model"
)

// ErrInsufficientFunds is returned when a debit exceeds the account balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

type balanceKey struct {
	asset   common.Address
	account common.Address
}

type poolKey struct {
	program common.Address
	seed    uint64
}

type state struct {
	balances map[balanceKey]uint64
	supply   map[common.Address]uint64
	pools    map[poolKey]model.PoolConfig
}

func newState() *state {
	return &state{
		balances: make(map[balanceKey]uint64),
		supply:   make(map[common.Address]uint64),
		pools:    make(map[poolKey]model.PoolConfig),
	}
}

func (s *state) clone() *state {
	out := &state{
		balances: make(map[balanceKey]uint64, len(s.balances)),
		supply:   make(map[common.Address]uint64, len(s.supply)),
		pools:    make(map[poolKey]model.PoolConfig, len(s.pools)),
	}
	for k, v := range s.balances {
		out.balances[k] = v
	}
	for k, v := range s.supply {
		out.supply[k] = v
	}
	for k, v := range s.pools {
		out.pools[k] = v
	}
	return out
}

// Memory is a Store whose transactions run one at a time against a working
// copy that replaces the committed state only when the transaction succeeds.
type Memory struct {
	mu    sync.Mutex
	state *state
}

// NewMemory returns an empty ledger.
func NewMemory() *Memory {
	return &Memory{state: newState()}
}

// Atomic implements amm.Store.
func (m *Memory) Atomic(ctx context.Context, fn func(amm.Ledger) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(&tx{state: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// Credit adds amount of asset to account outside of any pool operation.
func (m *Memory) Credit(ctx context.Context, asset, account common.Address, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&tx{state: m.state}).credit(asset, account, amount)
}

// Balance returns the committed balance of asset held by account.
func (m *Memory) Balance(asset, account common.Address) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.balances[balanceKey{asset, account}]
}

// Supply returns the committed total supply of token.
func (m *Memory) Supply(token common.Address) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.supply[token]
}

// Pools returns every committed pool record of program.
func (m *Memory) Pools(program common.Address) []model.PoolConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PoolConfig
	for k, cfg := range m.state.pools {
		if k.program == program {
			out = append(out, cfg)
		}
	}
	return out
}

type tx struct {
	state *state
}

func (t *tx) BalanceOf(_ context.Context, asset, account common.Address) (uint64, error) {
	return t.state.balances[balanceKey{asset, account}], nil
}

func (t *tx) Transfer(_ context.Context, asset, from, to common.Address, amount uint64) error {
	if err := t.debit(asset, from, amount); err != nil {
		return err
	}
	return t.credit(asset, to, amount)
}

func (t *tx) Mint(_ context.Context, token, to common.Address, amount uint64) error {
	supply, err := fixed.Add(t.state.supply[token], amount)
	if err != nil {
		return fmt.Errorf("supply of %s: %w", token.Hex(), err)
	}
	if err := t.credit(token, to, amount); err != nil {
		return err
	}
	t.state.supply[token] = supply
	return nil
}

func (t *tx) Burn(_ context.Context, token, from common.Address, amount uint64) error {
	supply, err := fixed.Sub(t.state.supply[token], amount)
	if err != nil {
		return fmt.Errorf("supply of %s: %w", token.Hex(), err)
	}
	if err := t.debit(token, from, amount); err != nil {
		return err
	}
	t.state.supply[token] = supply
	return nil
}

func (t *tx) TotalSupply(_ context.Context, token common.Address) (uint64, error) {
	return t.state.supply[token], nil
}

func (t *tx) LoadConfig(_ context.Context, program common.Address, seed uint64) (model.PoolConfig, bool, error) {
	cfg, ok := t.state.pools[poolKey{program, seed}]
	return cfg, ok, nil
}

func (t *tx) StoreConfig(_ context.Context, cfg model.PoolConfig) error {
	t.state.pools[poolKey{cfg.Program, cfg.Seed}] = cfg
	return nil
}

func (t *tx) debit(asset, account common.Address, amount uint64) error {
	k := balanceKey{asset, account}
	have := t.state.balances[k]
	if have < amount {
		return fmt.Errorf("%w: %s holds %d of %s, needs %d", ErrInsufficientFunds, account.Hex(), have, asset.Hex(), amount)
	}
	t.state.balances[k] = have - amount
	return nil
}

func (t *tx) credit(asset, account common.Address, amount uint64) error {
	k := balanceKey{asset, account}
	sum, err := fixed.Add(t.state.balances[k], amount)
	if err != nil {
		return fmt.Errorf("balance of %s: %w", account.Hex(), err)
	}
	t.state.balances[k] = sum
	return nil
}
