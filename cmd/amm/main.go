package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Constant-product AMM engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply a JSONL stream of pool operations",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input requests JSONL")
	replayCmd.Flags().String("program", "", "program address pools are keyed under")
	replayCmd.Flags().String("store", "memory", "ledger backend (memory, postgres)")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	replayCmd.Flags().String("receipts", "./data/receipts.jsonl", "receipts JSONL path")
	replayCmd.Flags().String("rejections", "./data/rejections.jsonl", "rejections JSONL path")
	replayCmd.Flags().String("checkpoint", "", "checkpoint file path, replay_state is used when empty (postgres store)")
	replayCmd.Flags().String("checkpoint-name", "replay", "replay_state name (postgres store)")
	replayCmd.Flags().String("balances", "", "opening balances JSON file")
	replayCmd.Flags().Int("batch-size", 500, "requests per journal batch")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts for transient store failures")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().Bool("stop-on-reject", false, "stop at the first rejected request")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap, deposit or withdraw without applying it",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("op", "swap", "operation to quote (swap, deposit, withdraw)")
	quoteCmd.Flags().Uint64("reserve-x", 0, "reserve of asset X")
	quoteCmd.Flags().Uint64("reserve-y", 0, "reserve of asset Y")
	quoteCmd.Flags().Uint64("supply", 0, "LP supply")
	quoteCmd.Flags().Uint64("fee", 0, "swap fee in basis points")
	quoteCmd.Flags().String("direction", "x_to_y", "swap direction (x_to_y, y_to_x)")
	quoteCmd.Flags().Uint64("amount", 0, "swap input, exact LP to deposit, or LP to withdraw")
	quoteCmd.Flags().Uint64("max-x", 0, "deposit cap of asset X")
	quoteCmd.Flags().Uint64("max-y", 0, "deposit cap of asset Y")
	quoteCmd.Flags().String("rpc", "", "RPC URL to read reserves from chain")
	quoteCmd.Flags().Uint64("block", 0, "block to read at, 0 means latest")
	quoteCmd.Flags().String("mint-x", "", "asset X token address")
	quoteCmd.Flags().String("mint-y", "", "asset Y token address")
	quoteCmd.Flags().String("mint-lp", "", "LP token address")
	quoteCmd.Flags().String("vault-x", "", "vault holding asset X")
	quoteCmd.Flags().String("vault-y", "", "vault holding asset Y")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Print the stored state of a pool",
		RunE:  runPool,
	}

	poolCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	poolCmd.Flags().String("program", "", "program address")
	poolCmd.Flags().Uint64("seed", 0, "pool seed")
	poolCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(poolCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate receipts into pool window metrics",
		RunE:  runStats,
	}

	statsCmd.Flags().String("in", "./data/receipts.jsonl", "input receipts JSONL")
	statsCmd.Flags().String("window", "1h", "aggregation window (e.g. 1m, 5m, 1h)")
	statsCmd.Flags().String("pg-dsn", "", "Postgres DSN, metrics are printed when empty")
	statsCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	statsCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	statsCmd.Flags().String("state-name", "stats", "replay_state name prefix for progress tracking")
	statsCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	statsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(statsCmd)

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Create the Postgres tables",
		RunE:  runSchema,
	}

	schemaCmd.Flags().String("pg-dsn", "", "Postgres DSN, the DDL is printed when empty")
	schemaCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(schemaCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
