package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/model"
)

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// ReadBalances loads opening balances from a JSON array file.
// An empty path yields no balances.
func ReadBalances(path string) ([]model.Balance, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read balances: %w", err)
	}
	var balances []model.Balance
	if err := json.Unmarshal(data, &balances); err != nil {
		return nil, fmt.Errorf("parse balances: %w", err)
	}
	return balances, nil
}
