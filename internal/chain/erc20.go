package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
	erc20ABIErr  error
)

func erc20Instance() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

// Caller executes eth_call. *Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// BalanceOf returns the token balance of owner. A nil blockNumber reads the latest state.
func BalanceOf(ctx context.Context, caller Caller, token, owner common.Address, blockNumber *big.Int) (uint64, error) {
	value, err := call(ctx, caller, token, blockNumber, "balanceOf", owner)
	if err != nil {
		return 0, err
	}
	return narrow("balanceOf", value)
}

// TotalSupply returns the total supply of token.
func TotalSupply(ctx context.Context, caller Caller, token common.Address, blockNumber *big.Int) (uint64, error) {
	value, err := call(ctx, caller, token, blockNumber, "totalSupply")
	if err != nil {
		return 0, err
	}
	return narrow("totalSupply", value)
}

// Decimals returns the token decimals.
func Decimals(ctx context.Context, caller Caller, token common.Address) (uint8, error) {
	value, err := call(ctx, caller, token, nil, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := value.(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals unexpected type %T", value)
	}
	return decimals, nil
}

func call(ctx context.Context, caller Caller, token common.Address, blockNumber *big.Int, method string, args ...interface{}) (interface{}, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	parsed, err := erc20Instance()
	if err != nil {
		return nil, err
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s return size %d", method, len(values))
	}
	return values[0], nil
}

func narrow(method string, value interface{}) (uint64, error) {
	v, ok := value.(*big.Int)
	if !ok {
		return 0, fmt.Errorf("%s unexpected type %T", method, value)
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%s value %s does not fit in uint64", method, v)
	}
	return v.Uint64(), nil
}
