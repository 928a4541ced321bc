package replay

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/amm"
	"cpamm/internal/model"
)

func buildJournalEntry(line uint64, req model.Request, receipt model.Receipt, now time.Time) model.JournalEntry {
	appliedAt := req.Timestamp
	if appliedAt == 0 {
		appliedAt = uint64(now.Unix())
	}
	return model.JournalEntry{Line: line, AppliedAt: appliedAt, Receipt: receipt}
}

func buildRejection(line uint64, req model.Request, err error) model.Rejection {
	caller := ""
	if req.Caller != (common.Address{}) {
		caller = req.Caller.Hex()
	}
	return model.Rejection{
		Line:   line,
		Op:     req.Op,
		Caller: caller,
		Seed:   req.Seed,
		Code:   amm.CodeOf(err),
		Error:  err.Error(),
	}
}
