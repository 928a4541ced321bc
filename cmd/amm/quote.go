package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpamm/internal/chain"
	"cpamm/internal/config"
	"cpamm/internal/curve"
	"cpamm/internal/model"
	"cpamm/internal/replay"
)

type quoteOutput struct {
	Op        string `json:"op"`
	ReserveX  uint64 `json:"reserve_x"`
	ReserveY  uint64 `json:"reserve_y"`
	Supply    uint64 `json:"supply"`
	FeeBps    uint16 `json:"fee_bps"`
	Direction string `json:"direction,omitempty"`
	AmountIn  uint64 `json:"amount_in,omitempty"`
	AmountOut uint64 `json:"amount_out,omitempty"`
	Fee       uint64 `json:"fee,omitempty"`
	Shares    uint64 `json:"shares,omitempty"`
	AmountX   uint64 `json:"amount_x,omitempty"`
	AmountY   uint64 `json:"amount_y,omitempty"`
	DecimalsX *uint8 `json:"decimals_x,omitempty"`
	DecimalsY *uint8 `json:"decimals_y,omitempty"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := quoteOutput{
		Op:       cfg.Op,
		ReserveX: cfg.ReserveX,
		ReserveY: cfg.ReserveY,
		Supply:   cfg.Supply,
		FeeBps:   cfg.Fee,
	}
	if cfg.RPCURL != "" {
		state, err := readChainState(ctx, cfg)
		if err != nil {
			return err
		}
		out.ReserveX, out.ReserveY, out.Supply = state.ReserveX, state.ReserveY, state.Supply
		out.DecimalsX, out.DecimalsY = &state.DecimalsX, &state.DecimalsY
		logger.Info("chain reserves",
			zap.Uint64("reserve_x", state.ReserveX),
			zap.Uint64("reserve_y", state.ReserveY),
			zap.Uint64("supply", state.Supply),
			zap.Uint64("block", cfg.Block),
		)
	}

	switch cfg.Op {
	case "swap":
		direction, err := model.ParseDirection(cfg.Direction)
		if err != nil {
			return err
		}
		q, err := curve.Swap(out.ReserveX, out.ReserveY, cfg.Amount, cfg.Fee, direction)
		if err != nil {
			return fmt.Errorf("quote swap: %w", err)
		}
		out.Direction = direction.String()
		out.AmountIn, out.AmountOut, out.Fee = q.AmountIn, q.AmountOut, q.Fee
	case "deposit":
		var (
			q   curve.DepositQuote
			err error
		)
		if cfg.Amount > 0 && out.Supply > 0 {
			q, err = curve.DepositExact(out.ReserveX, out.ReserveY, out.Supply, cfg.Amount)
		} else {
			q, err = curve.Deposit(out.ReserveX, out.ReserveY, out.Supply, cfg.MaxX, cfg.MaxY)
		}
		if err != nil {
			return fmt.Errorf("quote deposit: %w", err)
		}
		out.Shares, out.AmountX, out.AmountY = q.Shares, q.UsedX, q.UsedY
	case "withdraw":
		q, err := curve.Withdraw(out.ReserveX, out.ReserveY, out.Supply, cfg.Amount)
		if err != nil {
			return fmt.Errorf("quote withdraw: %w", err)
		}
		out.Shares, out.AmountX, out.AmountY = cfg.Amount, q.OutX, q.OutY
	default:
		return fmt.Errorf("unknown op %q", cfg.Op)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readChainState(ctx context.Context, cfg config.QuoteConfig) (chain.PoolState, error) {
	var accounts chain.PoolAccounts
	for _, field := range []struct {
		name  string
		input string
		dst   *common.Address
	}{
		{"mint-x", cfg.MintX, &accounts.MintX},
		{"mint-y", cfg.MintY, &accounts.MintY},
		{"vault-x", cfg.VaultX, &accounts.VaultX},
		{"vault-y", cfg.VaultY, &accounts.VaultY},
	} {
		addr, err := replay.ParseAddress(field.input)
		if err != nil {
			return chain.PoolState{}, fmt.Errorf("%s: %w", field.name, err)
		}
		*field.dst = addr
	}
	if cfg.MintLP != "" {
		addr, err := replay.ParseAddress(cfg.MintLP)
		if err != nil {
			return chain.PoolState{}, fmt.Errorf("mint-lp: %w", err)
		}
		accounts.MintLP = addr
	}

	client, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return chain.PoolState{}, err
	}
	defer client.Close()

	block := new(big.Int).SetUint64(cfg.Block)
	if cfg.Block == 0 {
		if block, err = client.Head(ctx); err != nil {
			return chain.PoolState{}, err
		}
	}
	return chain.NewPoolReader(client).Read(ctx, accounts, block)
}
