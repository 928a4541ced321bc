package activity

import (
	"github.com/holiman/uint256"

	"cpamm/internal/model"
)

// Accumulator holds aggregate values for one pool window.
type Accumulator struct {
	PoolAddress   string
	Seed          uint64
	WindowStart   uint64
	WindowEnd     uint64
	SwapCount     uint64
	DepositCount  uint64
	WithdrawCount uint64
	VolumeX       *uint256.Int
	VolumeY       *uint256.Int
	FeeX          *uint256.Int
	FeeY          *uint256.Int
	ReserveX      uint64
	ReserveY      uint64
	Supply        uint64
	LastTS        uint64
	LastLine      uint64
}

func NewAccumulator(entry model.JournalEntry, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolAddress: poolKey(entry.Receipt.Pool.Hex()),
		Seed:        entry.Receipt.Seed,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		VolumeX:     new(uint256.Int),
		VolumeY:     new(uint256.Int),
		FeeX:        new(uint256.Int),
		FeeY:        new(uint256.Int),
	}
}

// AddEntry folds one journaled receipt into the window. The latest entry by
// time, then by line, sets the closing reserves.
func (a *Accumulator) AddEntry(entry model.JournalEntry) {
	r := entry.Receipt
	if entry.AppliedAt > a.LastTS || (entry.AppliedAt == a.LastTS && entry.Line >= a.LastLine) {
		a.LastTS = entry.AppliedAt
		a.LastLine = entry.Line
		a.ReserveX = r.ReserveX
		a.ReserveY = r.ReserveY
		a.Supply = r.Supply
	}

	switch r.Op {
	case model.OpSwap:
		a.SwapCount++
		addUint(a.VolumeX, r.AmountX)
		addUint(a.VolumeY, r.AmountY)
		addUint(a.FeeX, r.FeeX)
		addUint(a.FeeY, r.FeeY)
	case model.OpDeposit:
		a.DepositCount++
	case model.OpWithdraw:
		a.WithdrawCount++
	}
}

func addUint(target *uint256.Int, v uint64) {
	target.Add(target, uint256.NewInt(v))
}
