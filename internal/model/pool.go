package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// MaxFeeBps is the largest accepted swap fee, in basis points.
const MaxFeeBps uint16 = 10_000

// PoolConfig is the durable record describing one pool.
type PoolConfig struct {
	Program   common.Address `json:"program"`
	Seed      uint64         `json:"seed"`
	Address   common.Address `json:"address"`
	Authority Authority      `json:"authority"`
	MintX     common.Address `json:"mint_x"`
	MintY     common.Address `json:"mint_y"`
	MintLP    common.Address `json:"mint_lp"`
	VaultX    common.Address `json:"vault_x"`
	VaultY    common.Address `json:"vault_y"`
	Fee       uint16         `json:"fee"`
	Locked    bool           `json:"locked"`
}

// Direction selects which reserve a swap pays into.
type Direction uint8

const (
	// XToY pays asset X in and receives asset Y.
	XToY Direction = iota
	// YToX pays asset Y in and receives asset X.
	YToX
)

func (d Direction) String() string {
	switch d {
	case XToY:
		return "x_to_y"
	case YToX:
		return "y_to_x"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ParseDirection accepts x_to_y / y_to_x and the short forms x / y, where the
// letter names the asset being paid in.
func ParseDirection(input string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "x_to_y", "x", "xy":
		return XToY, nil
	case "y_to_x", "y", "yx":
		return YToX, nil
	default:
		return 0, fmt.Errorf("invalid swap direction: %q", input)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	if d != XToY && d != YToX {
		return nil, fmt.Errorf("invalid swap direction: %d", uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
