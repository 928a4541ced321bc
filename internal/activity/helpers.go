package activity

import (
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

const ratioScale = 18

// computeFeeRate returns fee / reserve as a decimal string, or nil when
// either side is zero.
func computeFeeRate(fee *uint256.Int, reserve uint64) *string {
	if fee == nil || fee.IsZero() || reserve == 0 {
		return nil
	}
	rat := new(big.Rat).SetFrac(fee.ToBig(), new(big.Int).SetUint64(reserve))
	text := rat.FloatString(ratioScale)
	return &text
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func poolKey(address string) string {
	return strings.ToLower(address)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.WindowStart < min {
			min = entry.WindowStart
		}
	}
	return min
}
