package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "AMM"

// newViper merges defaults, environment variables, flags and an optional
// config file. Without an explicit file, ./config.* is read when present.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	Input          string
	Program        string
	Store          string
	PGDSN          string
	Receipts       string
	Rejections     string
	Checkpoint     string
	CheckpointName string
	Balances       string
	BatchSize      int
	MaxRetries     int
	RetryBackoff   time.Duration
	StopOnReject   bool
	LogLevel       string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"store":           "memory",
		"receipts":        "./data/receipts.jsonl",
		"rejections":      "./data/rejections.jsonl",
		"checkpoint-name": "replay",
		"batch-size":      500,
		"max-retries":     5,
		"retry-backoff":   500 * time.Millisecond,
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{
		Input:          v.GetString("in"),
		Program:        v.GetString("program"),
		Store:          strings.ToLower(v.GetString("store")),
		PGDSN:          v.GetString("pg-dsn"),
		Receipts:       v.GetString("receipts"),
		Rejections:     v.GetString("rejections"),
		Checkpoint:     v.GetString("checkpoint"),
		CheckpointName: v.GetString("checkpoint-name"),
		Balances:       v.GetString("balances"),
		BatchSize:      v.GetInt("batch-size"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		StopOnReject:   v.GetBool("stop-on-reject"),
		LogLevel:       v.GetString("log-level"),
	}, nil
}

// QuoteConfig holds configuration for the quote command. Reserves come from
// flags unless an RPC URL is set, in which case they are read from chain.
type QuoteConfig struct {
	Op        string
	ReserveX  uint64
	ReserveY  uint64
	Supply    uint64
	Fee       uint16
	Direction string
	Amount    uint64
	MaxX      uint64
	MaxY      uint64
	RPCURL    string
	Block     uint64
	MintX     string
	MintY     string
	MintLP    string
	VaultX    string
	VaultY    string
	LogLevel  string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"op":        "swap",
		"direction": "x_to_y",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	fee := v.GetUint64("fee")
	if fee > 10_000 {
		return QuoteConfig{}, fmt.Errorf("fee %d exceeds 10000 bps", fee)
	}

	return QuoteConfig{
		Op:        strings.ToLower(v.GetString("op")),
		ReserveX:  v.GetUint64("reserve-x"),
		ReserveY:  v.GetUint64("reserve-y"),
		Supply:    v.GetUint64("supply"),
		Fee:       uint16(fee),
		Direction: v.GetString("direction"),
		Amount:    v.GetUint64("amount"),
		MaxX:      v.GetUint64("max-x"),
		MaxY:      v.GetUint64("max-y"),
		RPCURL:    v.GetString("rpc"),
		Block:     v.GetUint64("block"),
		MintX:     v.GetString("mint-x"),
		MintY:     v.GetString("mint-y"),
		MintLP:    v.GetString("mint-lp"),
		VaultX:    v.GetString("vault-x"),
		VaultY:    v.GetString("vault-y"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}

// StatsConfig holds configuration for the stats command.
type StatsConfig struct {
	Input         string
	Window        string
	PGDSN         string
	BatchSize     int
	StateFile     string
	StateName     string
	RecomputeFrom string
	LogLevel      string
}

// LoadStats merges config file, environment variables, and flags into StatsConfig.
func LoadStats(cfgFile string, flags *pflag.FlagSet) (StatsConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"in":         "./data/receipts.jsonl",
		"window":     "1h",
		"batch-size": 1000,
		"state-name": "stats",
	})
	if err != nil {
		return StatsConfig{}, err
	}

	return StatsConfig{
		Input:         v.GetString("in"),
		Window:        v.GetString("window"),
		PGDSN:         v.GetString("pg-dsn"),
		BatchSize:     v.GetInt("batch-size"),
		StateFile:     v.GetString("state-file"),
		StateName:     v.GetString("state-name"),
		RecomputeFrom: v.GetString("recompute-from"),
		LogLevel:      v.GetString("log-level"),
	}, nil
}

// StoreConfig holds configuration for commands that only need the database.
type StoreConfig struct {
	PGDSN    string
	Program  string
	Seed     uint64
	LogLevel string
}

// LoadStore merges config file, environment variables, and flags into StoreConfig.
func LoadStore(cfgFile string, flags *pflag.FlagSet) (StoreConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return StoreConfig{}, err
	}
	return StoreConfig{
		PGDSN:    v.GetString("pg-dsn"),
		Program:  v.GetString("program"),
		Seed:     v.GetUint64("seed"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
