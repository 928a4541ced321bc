// Package amm applies constant-product pool operations against a
// transactional ledger.
package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/model"
)

// Engine runs operations for every pool owned by one program.
type Engine struct {
	program common.Address
	store   Store
	deriver Deriver
	logger  *zap.Logger
}

// NewEngine builds an Engine with its dependencies.
func NewEngine(program common.Address, store Store, deriver Deriver, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		program: program,
		store:   store,
		deriver: deriver,
		logger:  logger,
	}
}

// Program returns the program identity pools are keyed under.
func (e *Engine) Program() common.Address {
	return e.program
}

// Initialize creates the pool for args.Seed with caller as its authority.
func (e *Engine) Initialize(ctx context.Context, caller common.Address, args InitializeArgs) (model.Receipt, error) {
	var receipt model.Receipt
	err := e.store.Atomic(ctx, func(l Ledger) error {
		_, exists, err := l.LoadConfig(ctx, e.program, args.Seed)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		effects, err := Initialize(e.program, caller, args, exists, e.deriver)
		if err != nil {
			return err
		}
		if err := apply(ctx, l, effects); err != nil {
			return err
		}
		receipt = effects.Receipt
		return nil
	})
	return e.finish(model.OpInitialize, args.Seed, caller, receipt, err)
}

// Deposit adds liquidity to the pool at seed.
func (e *Engine) Deposit(ctx context.Context, caller common.Address, seed uint64, args DepositArgs) (model.Receipt, error) {
	return e.run(ctx, model.OpDeposit, seed, caller, func(s Snapshot) (Effects, error) {
		return Deposit(s, caller, args)
	})
}

// Withdraw redeems shares from the pool at seed.
func (e *Engine) Withdraw(ctx context.Context, caller common.Address, seed uint64, args WithdrawArgs) (model.Receipt, error) {
	return e.run(ctx, model.OpWithdraw, seed, caller, func(s Snapshot) (Effects, error) {
		return Withdraw(s, caller, args)
	})
}

// Swap trades against the pool at seed.
func (e *Engine) Swap(ctx context.Context, caller common.Address, seed uint64, args SwapArgs) (model.Receipt, error) {
	return e.run(ctx, model.OpSwap, seed, caller, func(s Snapshot) (Effects, error) {
		return Swap(s, caller, args)
	})
}

// Update changes the configuration of the pool at seed.
func (e *Engine) Update(ctx context.Context, caller common.Address, seed uint64, args UpdateArgs) (model.Receipt, error) {
	receipt, err := e.run(ctx, model.OpUpdate, seed, caller, func(s Snapshot) (Effects, error) {
		return Update(s, caller, args)
	})
	if err == nil && args.Authority != nil && !args.Authority.IsSet() {
		e.logger.Warn("pool authority cleared, configuration is frozen",
			zap.Uint64("seed", seed),
			zap.String("pool", receipt.Pool.Hex()),
		)
	}
	return receipt, err
}

// Execute dispatches a decoded request.
func (e *Engine) Execute(ctx context.Context, req model.Request) (model.Receipt, error) {
	switch req.Op {
	case model.OpInitialize:
		args := InitializeArgs{Seed: req.Seed, MintX: req.MintX, MintY: req.MintY}
		if req.Fee != nil {
			args.Fee = *req.Fee
		}
		if req.Locked != nil {
			args.Locked = *req.Locked
		}
		return e.Initialize(ctx, req.Caller, args)
	case model.OpDeposit:
		return e.Deposit(ctx, req.Caller, req.Seed, DepositArgs{Amount: req.Amount, MaxX: req.MaxX, MaxY: req.MaxY})
	case model.OpWithdraw:
		return e.Withdraw(ctx, req.Caller, req.Seed, WithdrawArgs{Amount: req.Amount, MinX: req.MinX, MinY: req.MinY})
	case model.OpSwap:
		if req.Direction == nil {
			return e.finish(req.Op, req.Seed, req.Caller, model.Receipt{}, reject(ErrInvalidAmount, "swap direction required"))
		}
		return e.Swap(ctx, req.Caller, req.Seed, SwapArgs{Direction: *req.Direction, Amount: req.Amount, Min: req.Min})
	case model.OpUpdate:
		return e.Update(ctx, req.Caller, req.Seed, UpdateArgs{Locked: req.Locked, Fee: req.Fee, Authority: req.Authority})
	default:
		return model.Receipt{}, fmt.Errorf("unsupported operation %q", req.Op)
	}
}

// Snapshot reads the current state of the pool at seed without changing it.
func (e *Engine) Snapshot(ctx context.Context, seed uint64) (Snapshot, error) {
	var snap Snapshot
	err := e.store.Atomic(ctx, func(l Ledger) error {
		var err error
		snap, err = loadSnapshot(ctx, l, e.program, seed)
		return err
	})
	return snap, err
}

func (e *Engine) run(ctx context.Context, op model.Operation, seed uint64, caller common.Address, fn func(Snapshot) (Effects, error)) (model.Receipt, error) {
	var receipt model.Receipt
	err := e.store.Atomic(ctx, func(l Ledger) error {
		snap, err := loadSnapshot(ctx, l, e.program, seed)
		if err != nil {
			return err
		}
		effects, err := fn(snap)
		if err != nil {
			return err
		}
		if err := apply(ctx, l, effects); err != nil {
			return err
		}
		receipt = effects.Receipt
		return nil
	})
	return e.finish(op, seed, caller, receipt, err)
}

func (e *Engine) finish(op model.Operation, seed uint64, caller common.Address, receipt model.Receipt, err error) (model.Receipt, error) {
	if err != nil {
		e.logger.Info("operation rejected",
			zap.String("op", string(op)),
			zap.Uint64("seed", seed),
			zap.String("caller", caller.Hex()),
			zap.Error(err),
		)
		return model.Receipt{}, err
	}
	e.logger.Debug("operation committed",
		zap.String("op", string(op)),
		zap.String("pool", receipt.Pool.Hex()),
		zap.String("caller", caller.Hex()),
		zap.Uint64("amount_x", receipt.AmountX),
		zap.Uint64("amount_y", receipt.AmountY),
		zap.Uint64("shares", receipt.Shares),
		zap.Uint64("reserve_x", receipt.ReserveX),
		zap.Uint64("reserve_y", receipt.ReserveY),
		zap.Uint64("supply", receipt.Supply),
	)
	return receipt, nil
}

func loadSnapshot(ctx context.Context, l Ledger, program common.Address, seed uint64) (Snapshot, error) {
	cfg, ok, err := l.LoadConfig(ctx, program, seed)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load config: %w", err)
	}
	if !ok {
		return Snapshot{}, reject(ErrPoolNotFound, "seed %d", seed)
	}
	reserveX, err := l.BalanceOf(ctx, cfg.MintX, cfg.VaultX)
	if err != nil {
		return Snapshot{}, fmt.Errorf("vault x balance: %w", err)
	}
	reserveY, err := l.BalanceOf(ctx, cfg.MintY, cfg.VaultY)
	if err != nil {
		return Snapshot{}, fmt.Errorf("vault y balance: %w", err)
	}
	supply, err := l.TotalSupply(ctx, cfg.MintLP)
	if err != nil {
		return Snapshot{}, fmt.Errorf("lp supply: %w", err)
	}
	return Snapshot{Config: cfg, ReserveX: reserveX, ReserveY: reserveY, Supply: supply}, nil
}

func apply(ctx context.Context, l Ledger, effects Effects) error {
	if b := effects.Burn; b != nil {
		if err := l.Burn(ctx, b.Token, b.Account, b.Amount); err != nil {
			return fmt.Errorf("burn: %w", err)
		}
	}
	for _, t := range effects.Transfers {
		if err := l.Transfer(ctx, t.Asset, t.From, t.To, t.Amount); err != nil {
			return fmt.Errorf("transfer %s: %w", t.Asset.Hex(), err)
		}
	}
	if m := effects.Mint; m != nil {
		if err := l.Mint(ctx, m.Token, m.Account, m.Amount); err != nil {
			return fmt.Errorf("mint: %w", err)
		}
	}
	if effects.WriteConfig {
		if err := l.StoreConfig(ctx, effects.Config); err != nil {
			return fmt.Errorf("store config: %w", err)
		}
	}
	return nil
}
