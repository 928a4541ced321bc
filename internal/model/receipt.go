package model

import "github.com/ethereum/go-ethereum/common"

// Operation names a pool state transition.
type Operation string

const (
	OpInitialize Operation = "initialize"
	OpDeposit    Operation = "deposit"
	OpWithdraw   Operation = "withdraw"
	OpSwap       Operation = "swap"
	OpUpdate     Operation = "update"
)

// Valid reports whether o names a known operation.
func (o Operation) Valid() bool {
	switch o {
	case OpInitialize, OpDeposit, OpWithdraw, OpSwap, OpUpdate:
		return true
	}
	return false
}

// Receipt describes a committed operation and the pool state it left behind.
//
// AmountX and AmountY are the units of each asset that crossed the vaults,
// in whichever direction the operation moved them. FeeX and FeeY are the
// swap fee units retained by the pool.
type Receipt struct {
	Op        Operation      `json:"op"`
	Pool      common.Address `json:"pool"`
	Seed      uint64         `json:"seed"`
	Caller    common.Address `json:"caller"`
	Direction *Direction     `json:"direction,omitempty"`
	AmountX   uint64         `json:"amount_x"`
	AmountY   uint64         `json:"amount_y"`
	Shares    uint64         `json:"shares"`
	FeeX      uint64         `json:"fee_x"`
	FeeY      uint64         `json:"fee_y"`
	ReserveX  uint64         `json:"reserve_x"`
	ReserveY  uint64         `json:"reserve_y"`
	Supply    uint64         `json:"supply"`
	FeeBps    uint16         `json:"fee_bps"`
	Locked    bool           `json:"locked"`
	Authority Authority      `json:"authority"`
}

// JournalEntry is a receipt stamped with the time it was applied.
type JournalEntry struct {
	Line      uint64  `json:"line"`
	AppliedAt uint64  `json:"applied_at"`
	Receipt   Receipt `json:"receipt"`
}
