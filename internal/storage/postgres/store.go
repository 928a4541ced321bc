package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cpamm/internal/amm"
	"cpamm/internal/fixed"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

//go:embed schema.sql
var schema string

// Schema returns the DDL applied by EnsureSchema.
func Schema() string {
	return schema
}

const checkViolation = "23514"

// Store provides Postgres persistence for pools, balances, replay state and metrics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Atomic runs fn in a serializable transaction and commits when fn succeeds.
// Serialization failures are returned as plain errors so callers may retry.
func (s *Store) Atomic(ctx context.Context, fn func(amm.Ledger) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&ledgerTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Credit adds an opening balance outside of any pool operation.
func (s *Store) Credit(ctx context.Context, asset, account common.Address, amount uint64) error {
	return s.Atomic(ctx, func(l amm.Ledger) error {
		return l.(*ledgerTx).credit(ctx, asset, account, amount)
	})
}

type ledgerTx struct {
	tx pgx.Tx
}

func (l *ledgerTx) BalanceOf(ctx context.Context, asset, account common.Address) (uint64, error) {
	var amount string
	err := l.tx.QueryRow(ctx,
		`SELECT amount::text FROM balances WHERE asset=$1 AND account=$2`,
		asset.Hex(), account.Hex(),
	).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return parseUint(amount)
}

func (l *ledgerTx) Transfer(ctx context.Context, asset, from, to common.Address, amount uint64) error {
	if err := l.debit(ctx, asset, from, amount); err != nil {
		return err
	}
	return l.credit(ctx, asset, to, amount)
}

func (l *ledgerTx) Mint(ctx context.Context, token, to common.Address, amount uint64) error {
	_, err := l.tx.Exec(ctx, `
		INSERT INTO supplies (token, amount, updated_at)
		VALUES ($1, $2::text::numeric, now())
		ON CONFLICT (token) DO UPDATE
		SET amount = supplies.amount + EXCLUDED.amount, updated_at = now()
	`, token.Hex(), formatUint(amount))
	if err := overflow(err); err != nil {
		return fmt.Errorf("supply of %s: %w", token.Hex(), err)
	}
	return l.credit(ctx, token, to, amount)
}

func (l *ledgerTx) Burn(ctx context.Context, token, from common.Address, amount uint64) error {
	tag, err := l.tx.Exec(ctx, `
		UPDATE supplies SET amount = amount - $2::text::numeric, updated_at = now()
		WHERE token=$1 AND amount >= $2::text::numeric
	`, token.Hex(), formatUint(amount))
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 && amount > 0 {
		return fmt.Errorf("supply of %s: %w", token.Hex(), fixed.ErrUnderflow)
	}
	return l.debit(ctx, token, from, amount)
}

func (l *ledgerTx) TotalSupply(ctx context.Context, token common.Address) (uint64, error) {
	var amount string
	err := l.tx.QueryRow(ctx, `SELECT amount::text FROM supplies WHERE token=$1`, token.Hex()).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return parseUint(amount)
}

// LoadConfig locks the pool row for the rest of the transaction.
func (l *ledgerTx) LoadConfig(ctx context.Context, program common.Address, seed uint64) (model.PoolConfig, bool, error) {
	var (
		cfg       model.PoolConfig
		address   string
		authority *string
		mints     [5]string
		fee       int32
	)
	err := l.tx.QueryRow(ctx, `
		SELECT address, authority, mint_x, mint_y, mint_lp, vault_x, vault_y, fee, locked
		FROM pools
		WHERE program=$1 AND seed=$2::text::numeric
		FOR UPDATE
	`, program.Hex(), formatUint(seed)).Scan(
		&address, &authority, &mints[0], &mints[1], &mints[2], &mints[3], &mints[4], &fee, &cfg.Locked,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolConfig{}, false, nil
		}
		return model.PoolConfig{}, false, err
	}

	cfg.Program = program
	cfg.Seed = seed
	cfg.Address = common.HexToAddress(address)
	cfg.Authority = model.NoAuthority()
	if authority != nil {
		cfg.Authority = model.SomeAuthority(common.HexToAddress(*authority))
	}
	cfg.MintX = common.HexToAddress(mints[0])
	cfg.MintY = common.HexToAddress(mints[1])
	cfg.MintLP = common.HexToAddress(mints[2])
	cfg.VaultX = common.HexToAddress(mints[3])
	cfg.VaultY = common.HexToAddress(mints[4])
	cfg.Fee = uint16(fee)
	return cfg, true, nil
}

func (l *ledgerTx) StoreConfig(ctx context.Context, cfg model.PoolConfig) error {
	var authority *string
	if addr, ok := cfg.Authority.Get(); ok {
		hex := addr.Hex()
		authority = &hex
	}
	_, err := l.tx.Exec(ctx, `
		INSERT INTO pools (
			program, seed, address, authority, mint_x, mint_y, mint_lp, vault_x, vault_y, fee, locked, created_at, updated_at
		) VALUES ($1, $2::text::numeric, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		ON CONFLICT (program, seed)
		DO UPDATE SET
			authority = EXCLUDED.authority,
			fee = EXCLUDED.fee,
			locked = EXCLUDED.locked,
			updated_at = now()
	`,
		cfg.Program.Hex(),
		formatUint(cfg.Seed),
		cfg.Address.Hex(),
		authority,
		cfg.MintX.Hex(),
		cfg.MintY.Hex(),
		cfg.MintLP.Hex(),
		cfg.VaultX.Hex(),
		cfg.VaultY.Hex(),
		int32(cfg.Fee),
		cfg.Locked,
	)
	return err
}

func (l *ledgerTx) debit(ctx context.Context, asset, account common.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	tag, err := l.tx.Exec(ctx, `
		UPDATE balances SET amount = amount - $3::text::numeric, updated_at = now()
		WHERE asset=$1 AND account=$2 AND amount >= $3::text::numeric
	`, asset.Hex(), account.Hex(), formatUint(amount))
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: %s cannot pay %d of %s", ledger.ErrInsufficientFunds, account.Hex(), amount, asset.Hex())
	}
	return nil
}

func (l *ledgerTx) credit(ctx context.Context, asset, account common.Address, amount uint64) error {
	_, err := l.tx.Exec(ctx, `
		INSERT INTO balances (asset, account, amount, updated_at)
		VALUES ($1, $2, $3::text::numeric, now())
		ON CONFLICT (asset, account) DO UPDATE
		SET amount = balances.amount + EXCLUDED.amount, updated_at = now()
	`, asset.Hex(), account.Hex(), formatUint(amount))
	if err := overflow(err); err != nil {
		return fmt.Errorf("balance of %s: %w", account.Hex(), err)
	}
	return nil
}

// overflow maps the uint64 range check onto fixed.ErrOverflow.
func overflow(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == checkViolation {
		return fmt.Errorf("%w: %s", fixed.ErrOverflow, pgErr.ConstraintName)
	}
	return err
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return v, nil
}

// LoadState returns the position stored under name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var line int64
	row := s.pool.QueryRow(ctx, `SELECT last_line FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&line); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(line), true, nil
}

// SaveState upserts the position stored under name.
func (s *Store) SaveState(ctx context.Context, name string, line uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_state (name, last_line, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_line = EXCLUDED.last_line, updated_at = now()
	`, name, int64(line))
	return err
}

// Cursor is a named replay_state row. It satisfies storage.Cursor.
type Cursor struct {
	store *Store
	name  string
}

// Cursor returns the replay_state row stored under name.
func (s *Store) Cursor(name string) *Cursor {
	return &Cursor{store: s, name: name}
}

func (c *Cursor) Load(ctx context.Context) (uint64, bool, error) {
	return c.store.LoadState(ctx, c.name)
}

func (c *Cursor) Save(ctx context.Context, position uint64) error {
	return c.store.SaveState(ctx, c.name, position)
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool_address, seed, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, deposit_count, withdraw_count, volume_x, volume_y, fee_x, fee_y,
				fee_rate_x, fee_rate_y, reserve_x, reserve_y, supply, created_at, updated_at
			) VALUES (
				$1, $2::text::numeric, $3, $4, $5, $6, $7, $8,
				$9::text::numeric, $10::text::numeric, $11::text::numeric, $12::text::numeric,
				$13::text::numeric, $14::text::numeric,
				$15::text::numeric, $16::text::numeric, $17::text::numeric, now(), now()
			)
			ON CONFLICT (pool_address, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				deposit_count = EXCLUDED.deposit_count,
				withdraw_count = EXCLUDED.withdraw_count,
				volume_x = EXCLUDED.volume_x,
				volume_y = EXCLUDED.volume_y,
				fee_x = EXCLUDED.fee_x,
				fee_y = EXCLUDED.fee_y,
				fee_rate_x = EXCLUDED.fee_rate_x,
				fee_rate_y = EXCLUDED.fee_rate_y,
				reserve_x = EXCLUDED.reserve_x,
				reserve_y = EXCLUDED.reserve_y,
				supply = EXCLUDED.supply,
				updated_at = now()
		`,
			m.PoolAddress,
			formatUint(m.Seed),
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			int64(m.DepositCount),
			int64(m.WithdrawCount),
			m.VolumeX,
			m.VolumeY,
			m.FeeX,
			m.FeeY,
			m.FeeRateX,
			m.FeeRateY,
			formatUint(m.ReserveX),
			formatUint(m.ReserveY),
			formatUint(m.Supply),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
