package amm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/curve"
	"cpamm/internal/fixed"
	"cpamm/internal/model"
)

// Snapshot is the pool state an operation is evaluated against.
type Snapshot struct {
	Config   model.PoolConfig
	ReserveX uint64
	ReserveY uint64
	Supply   uint64
}

// Effects is the complete delta produced by an accepted operation.
// Burn applies first, then Transfers in order, then Mint, then the config write.
type Effects struct {
	Config      model.PoolConfig
	WriteConfig bool
	Transfers   []model.Transfer
	Mint        *model.ShareMovement
	Burn        *model.ShareMovement
	Receipt     model.Receipt
}

type InitializeArgs struct {
	Seed   uint64
	MintX  common.Address
	MintY  common.Address
	Fee    uint16
	Locked bool
}

// DepositArgs caps the assets taken. A non-zero Amount asks for exactly that
// many shares on a live pool and is the minimum accepted on an empty one.
type DepositArgs struct {
	Amount uint64
	MaxX   uint64
	MaxY   uint64
}

// WithdrawArgs redeems Amount shares. Zero minimums impose no bound.
type WithdrawArgs struct {
	Amount uint64
	MinX   uint64
	MinY   uint64
}

type SwapArgs struct {
	Direction model.Direction
	Amount    uint64
	Min       uint64
}

// UpdateArgs leaves nil fields unchanged.
type UpdateArgs struct {
	Locked    *bool
	Fee       *uint16
	Authority *model.Authority
}

// Initialize creates a pool owned by caller.
func Initialize(program, caller common.Address, args InitializeArgs, exists bool, deriver Deriver) (Effects, error) {
	if err := validateFee(args.Fee); err != nil {
		return Effects{}, err
	}
	if args.MintX == (common.Address{}) || args.MintY == (common.Address{}) {
		return Effects{}, reject(ErrInvalidAmount, "mint_x and mint_y are required")
	}
	if args.MintX == args.MintY {
		return Effects{}, reject(ErrInvalidAmount, "mint_x and mint_y are both %s", args.MintX.Hex())
	}
	if exists {
		return Effects{}, reject(ErrPoolExists, "seed %d", args.Seed)
	}

	cfg := deriver.Populate(model.PoolConfig{
		Program:   program,
		Seed:      args.Seed,
		Authority: model.SomeAuthority(caller),
		MintX:     args.MintX,
		MintY:     args.MintY,
		Fee:       args.Fee,
		Locked:    args.Locked,
	})
	return Effects{
		Config:      cfg,
		WriteConfig: true,
		Receipt:     newReceipt(model.OpInitialize, cfg, caller),
	}, nil
}

// Deposit adds liquidity in the current reserve ratio.
func Deposit(snap Snapshot, caller common.Address, args DepositArgs) (Effects, error) {
	cfg := snap.Config
	if err := guardLive(cfg, args.MaxX, args.MaxY); err != nil {
		return Effects{}, err
	}

	var (
		q   curve.DepositQuote
		err error
	)
	if snap.Supply > 0 && args.Amount > 0 {
		q, err = curve.DepositExact(snap.ReserveX, snap.ReserveY, snap.Supply, args.Amount)
		if err != nil {
			return Effects{}, classify(err)
		}
		if q.UsedX > args.MaxX || q.UsedY > args.MaxY {
			return Effects{}, reject(ErrSlippageExceeded, "%d shares need (%d, %d), caps (%d, %d)",
				args.Amount, q.UsedX, q.UsedY, args.MaxX, args.MaxY)
		}
	} else {
		q, err = curve.Deposit(snap.ReserveX, snap.ReserveY, snap.Supply, args.MaxX, args.MaxY)
		if err != nil {
			return Effects{}, classify(err)
		}
		if q.Shares < args.Amount {
			return Effects{}, reject(ErrSlippageExceeded, "minted %d shares, wanted %d", q.Shares, args.Amount)
		}
	}

	next := snap
	if next.ReserveX, err = fixed.Add(snap.ReserveX, q.UsedX); err != nil {
		return Effects{}, fmt.Errorf("reserve x: %w", err)
	}
	if next.ReserveY, err = fixed.Add(snap.ReserveY, q.UsedY); err != nil {
		return Effects{}, fmt.Errorf("reserve y: %w", err)
	}
	if next.Supply, err = fixed.Add(snap.Supply, q.Shares); err != nil {
		return Effects{}, fmt.Errorf("supply: %w", err)
	}

	receipt := next.receipt(model.OpDeposit, caller)
	receipt.AmountX, receipt.AmountY, receipt.Shares = q.UsedX, q.UsedY, q.Shares
	return Effects{
		Config: cfg,
		Transfers: []model.Transfer{
			{Asset: cfg.MintX, From: caller, To: cfg.VaultX, Amount: q.UsedX},
			{Asset: cfg.MintY, From: caller, To: cfg.VaultY, Amount: q.UsedY},
		},
		Mint:    &model.ShareMovement{Token: cfg.MintLP, Account: caller, Amount: q.Shares},
		Receipt: receipt,
	}, nil
}

// Withdraw redeems shares for a proportional slice of both reserves.
func Withdraw(snap Snapshot, caller common.Address, args WithdrawArgs) (Effects, error) {
	cfg := snap.Config
	if err := guardLive(cfg, args.Amount); err != nil {
		return Effects{}, err
	}

	q, err := curve.Withdraw(snap.ReserveX, snap.ReserveY, snap.Supply, args.Amount)
	if err != nil {
		return Effects{}, classify(err)
	}
	if q.OutX < args.MinX || q.OutY < args.MinY {
		return Effects{}, reject(ErrSlippageExceeded, "out (%d, %d), minimum (%d, %d)",
			q.OutX, q.OutY, args.MinX, args.MinY)
	}

	next := snap
	next.ReserveX -= q.OutX
	next.ReserveY -= q.OutY
	next.Supply -= args.Amount

	receipt := next.receipt(model.OpWithdraw, caller)
	receipt.AmountX, receipt.AmountY, receipt.Shares = q.OutX, q.OutY, args.Amount
	return Effects{
		Config: cfg,
		Burn:   &model.ShareMovement{Token: cfg.MintLP, Account: caller, Amount: args.Amount},
		Transfers: []model.Transfer{
			{Asset: cfg.MintX, From: cfg.VaultX, To: caller, Amount: q.OutX},
			{Asset: cfg.MintY, From: cfg.VaultY, To: caller, Amount: q.OutY},
		},
		Receipt: receipt,
	}, nil
}

// Swap trades Amount of one asset for the other.
func Swap(snap Snapshot, caller common.Address, args SwapArgs) (Effects, error) {
	cfg := snap.Config
	if err := guardLive(cfg, args.Amount); err != nil {
		return Effects{}, err
	}
	if args.Direction != model.XToY && args.Direction != model.YToX {
		return Effects{}, reject(ErrInvalidAmount, "unknown direction %d", uint8(args.Direction))
	}

	q, err := curve.Swap(snap.ReserveX, snap.ReserveY, args.Amount, cfg.Fee, args.Direction)
	if err != nil {
		return Effects{}, classify(err)
	}
	if q.AmountOut < args.Min {
		return Effects{}, reject(ErrSlippageExceeded, "out %d, minimum %d", q.AmountOut, args.Min)
	}

	next := snap
	direction := args.Direction
	var (
		receipt   model.Receipt
		transfers []model.Transfer
	)
	if direction == model.XToY {
		next.ReserveX += q.AmountIn
		next.ReserveY -= q.AmountOut
		receipt = next.receipt(model.OpSwap, caller)
		receipt.AmountX, receipt.AmountY, receipt.FeeX = q.AmountIn, q.AmountOut, q.Fee
		transfers = []model.Transfer{
			{Asset: cfg.MintX, From: caller, To: cfg.VaultX, Amount: q.AmountIn},
			{Asset: cfg.MintY, From: cfg.VaultY, To: caller, Amount: q.AmountOut},
		}
	} else {
		next.ReserveY += q.AmountIn
		next.ReserveX -= q.AmountOut
		receipt = next.receipt(model.OpSwap, caller)
		receipt.AmountX, receipt.AmountY, receipt.FeeY = q.AmountOut, q.AmountIn, q.Fee
		transfers = []model.Transfer{
			{Asset: cfg.MintY, From: caller, To: cfg.VaultY, Amount: q.AmountIn},
			{Asset: cfg.MintX, From: cfg.VaultX, To: caller, Amount: q.AmountOut},
		}
	}
	receipt.Direction = &direction
	return Effects{Config: cfg, Transfers: transfers, Receipt: receipt}, nil
}

// Update changes lock state, fee or authority. Only the authority may call it,
// and it is the one operation permitted on a locked pool.
func Update(snap Snapshot, caller common.Address, args UpdateArgs) (Effects, error) {
	cfg := snap.Config
	if err := authorize(cfg, caller); err != nil {
		return Effects{}, err
	}
	if args.Fee != nil {
		if err := validateFee(*args.Fee); err != nil {
			return Effects{}, err
		}
		cfg.Fee = *args.Fee
	}
	if args.Locked != nil {
		cfg.Locked = *args.Locked
	}
	if args.Authority != nil {
		cfg.Authority = *args.Authority
	}

	next := snap
	next.Config = cfg
	return Effects{
		Config:      cfg,
		WriteConfig: true,
		Receipt:     next.receipt(model.OpUpdate, caller),
	}, nil
}

func (s Snapshot) receipt(op model.Operation, caller common.Address) model.Receipt {
	r := newReceipt(op, s.Config, caller)
	r.ReserveX, r.ReserveY, r.Supply = s.ReserveX, s.ReserveY, s.Supply
	return r
}

func newReceipt(op model.Operation, cfg model.PoolConfig, caller common.Address) model.Receipt {
	return model.Receipt{
		Op:        op,
		Pool:      cfg.Address,
		Seed:      cfg.Seed,
		Caller:    caller,
		FeeBps:    cfg.Fee,
		Locked:    cfg.Locked,
		Authority: cfg.Authority,
	}
}
