package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// PoolAccounts names the on-chain accounts backing one pool.
type PoolAccounts struct {
	MintX  common.Address
	MintY  common.Address
	MintLP common.Address
	VaultX common.Address
	VaultY common.Address
}

// PoolState is the curve input read from chain.
type PoolState struct {
	ReserveX  uint64
	ReserveY  uint64
	Supply    uint64
	DecimalsX uint8
	DecimalsY uint8
}

// PoolReader reads pool reserves and share supply, caching token decimals.
type PoolReader struct {
	caller Caller

	mu       sync.RWMutex
	decimals map[common.Address]uint8
}

func NewPoolReader(caller Caller) *PoolReader {
	return &PoolReader{caller: caller, decimals: make(map[common.Address]uint8)}
}

// Read returns the reserves and supply at blockNumber, or the latest state when nil.
func (r *PoolReader) Read(ctx context.Context, accounts PoolAccounts, blockNumber *big.Int) (PoolState, error) {
	var (
		state PoolState
		err   error
	)
	if state.ReserveX, err = BalanceOf(ctx, r.caller, accounts.MintX, accounts.VaultX, blockNumber); err != nil {
		return PoolState{}, fmt.Errorf("vault x: %w", err)
	}
	if state.ReserveY, err = BalanceOf(ctx, r.caller, accounts.MintY, accounts.VaultY, blockNumber); err != nil {
		return PoolState{}, fmt.Errorf("vault y: %w", err)
	}
	if accounts.MintLP != (common.Address{}) {
		if state.Supply, err = TotalSupply(ctx, r.caller, accounts.MintLP, blockNumber); err != nil {
			return PoolState{}, fmt.Errorf("lp supply: %w", err)
		}
	}
	if state.DecimalsX, err = r.tokenDecimals(ctx, accounts.MintX); err != nil {
		return PoolState{}, fmt.Errorf("decimals x: %w", err)
	}
	if state.DecimalsY, err = r.tokenDecimals(ctx, accounts.MintY); err != nil {
		return PoolState{}, fmt.Errorf("decimals y: %w", err)
	}
	return state, nil
}

func (r *PoolReader) tokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	r.mu.RLock()
	decimals, ok := r.decimals[token]
	r.mu.RUnlock()
	if ok {
		return decimals, nil
	}

	decimals, err := Decimals(ctx, r.caller, token)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	r.decimals[token] = decimals
	r.mu.Unlock()
	return decimals, nil
}
