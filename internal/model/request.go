package model

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// Request is one operation submitted for replay. Caller is the identity the
// surrounding runtime has already verified. A non-zero Timestamp (unix
// seconds) overrides the wall clock when the receipt is journaled. Direction
// is nil when the line omits it.
type Request struct {
	Op        Operation      `json:"op"`
	Timestamp uint64         `json:"ts,omitempty"`
	Caller    common.Address `json:"caller"`
	Seed      uint64         `json:"seed"`
	MintX     common.Address `json:"mint_x"`
	MintY     common.Address `json:"mint_y"`
	Fee       *uint16        `json:"fee,omitempty"`
	Locked    *bool          `json:"locked,omitempty"`
	Authority *Authority     `json:"authority,omitempty"`
	Direction *Direction     `json:"direction,omitempty"`
	Amount    uint64         `json:"amount,omitempty"`
	MaxX      uint64         `json:"max_x,omitempty"`
	MaxY      uint64         `json:"max_y,omitempty"`
	MinX      uint64         `json:"min_x,omitempty"`
	MinY      uint64         `json:"min_y,omitempty"`
	Min       uint64         `json:"min,omitempty"`
}

// ParseRequest decodes one JSON request line.
func ParseRequest(line []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, err
	}
	return req, nil
}
