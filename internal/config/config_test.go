package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadReplayDefaultsAndOverrides(t *testing.T) {
	flags := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	flags.String("in", "", "")
	flags.Int("batch-size", 0, "")
	require.NoError(t, flags.Parse([]string{"--in", "requests.jsonl", "--batch-size", "25"}))
	t.Setenv("AMM_STORE", "Postgres")
	t.Setenv("AMM_MAX_RETRIES", "2")

	cfg, err := LoadReplay("", flags)
	require.NoError(t, err)
	require.Equal(t, "requests.jsonl", cfg.Input)
	require.Equal(t, 25, cfg.BatchSize)
	require.Equal(t, "postgres", cfg.Store)
	require.Equal(t, 2, cfg.MaxRetries)
	require.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	require.Equal(t, "./data/receipts.jsonl", cfg.Receipts)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadStatsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "amm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window: 15m\npg-dsn: postgres://localhost/amm\nlog-level: debug\n"), 0o644))

	cfg, err := LoadStats(path, nil)
	require.NoError(t, err)
	require.Equal(t, "15m", cfg.Window)
	require.Equal(t, "postgres://localhost/amm", cfg.PGDSN)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 1000, cfg.BatchSize)

	_, err = LoadStats(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestLoadQuoteRejectsFee(t *testing.T) {
	t.Setenv("AMM_FEE", "10001")
	_, err := LoadQuote("", nil)
	require.ErrorContains(t, err, "fee")

	t.Setenv("AMM_FEE", "30")
	t.Setenv("AMM_RESERVE_X", "1000")
	cfg, err := LoadQuote("", nil)
	require.NoError(t, err)
	require.Equal(t, uint16(30), cfg.Fee)
	require.Equal(t, uint64(1000), cfg.ReserveX)
	require.Equal(t, "swap", cfg.Op)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("1700000000")
	require.NoError(t, err)
	require.Equal(t, uint64(1700000000), ts)

	ts, err = ParseTimestamp("2023-11-14T22:13:20Z")
	require.NoError(t, err)
	require.Equal(t, uint64(1700000000), ts)

	ts, err = ParseTimestamp(" ")
	require.NoError(t, err)
	require.Zero(t, ts)

	_, err = ParseTimestamp("yesterday")
	require.Error(t, err)
}
