// Package replay applies a JSONL stream of operation requests to the engine.
package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/model"
	"cpamm/internal/storage"
)

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	InputPath    string
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	StopOnReject bool
	Balances     []model.Balance
}

// Executor applies one request and returns its receipt.
type Executor interface {
	Execute(ctx context.Context, req model.Request) (model.Receipt, error)
}

// Funder credits opening balances.
type Funder interface {
	Credit(ctx context.Context, asset, account common.Address, amount uint64) error
}

// Summary counts the outcome of a run.
type Summary struct {
	Applied  int
	Rejected int
	Skipped  int
	LastLine uint64
}

// Runner streams requests from a file through the engine and journals the outcome.
type Runner struct {
	cfg        RunConfig
	engine     Executor
	funder     Funder
	journal    storage.Journal
	checkpoint storage.Cursor
	logger     *zap.Logger
	now        func() time.Time
}

// NewRunner builds a Runner with its dependencies. funder may be nil when
// no opening balances are configured.
func NewRunner(cfg RunConfig, engine Executor, funder Funder, journal storage.Journal, checkpoint storage.Cursor, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkpoint == nil {
		checkpoint = &storage.FileCursor{}
	}
	return &Runner{
		cfg:        cfg,
		engine:     engine,
		funder:     funder,
		journal:    journal,
		checkpoint: checkpoint,
		logger:     logger,
		now:        time.Now,
	}
}

type batch struct {
	receipts   []model.JournalEntry
	rejections []model.Rejection
	lastLine   uint64
}

// Run replays every request after the checkpoint.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	if r.engine == nil {
		return summary, fmt.Errorf("engine is nil")
	}
	if r.journal == nil {
		return summary, fmt.Errorf("journal is nil")
	}
	if r.cfg.BatchSize <= 0 {
		return summary, fmt.Errorf("batch size must be greater than zero")
	}

	lastLine, resumed, err := r.checkpoint.Load(ctx)
	if err != nil {
		return summary, err
	}
	if resumed {
		r.logger.Info("resume from checkpoint", zap.Uint64("last_line", lastLine))
	} else if err := r.fund(ctx); err != nil {
		return summary, err
	}
	summary.LastLine = lastLine

	file, err := os.Open(r.cfg.InputPath)
	if err != nil {
		return summary, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var (
		pending batch
		lineNo  uint64
	)
	flush := func() error {
		if pending.lastLine == 0 {
			return nil
		}
		if err := r.journal.PutReceipts(pending.receipts); err != nil {
			return fmt.Errorf("journal receipts: %w", err)
		}
		if err := r.journal.PutRejections(pending.rejections); err != nil {
			return fmt.Errorf("journal rejections: %w", err)
		}
		if err := r.checkpoint.Save(ctx, pending.lastLine); err != nil {
			return err
		}
		r.logger.Info("batch complete",
			zap.Int("receipts", len(pending.receipts)),
			zap.Int("rejections", len(pending.rejections)),
			zap.Uint64("last_line", pending.lastLine),
		)
		summary.LastLine = pending.lastLine
		pending = batch{}
		return nil
	}

	for {
		raw, readErr := reader.ReadBytes('\n')
		if len(raw) > 0 {
			lineNo++
			if lineNo <= lastLine {
				summary.Skipped++
			} else if err := r.process(ctx, lineNo, trimLine(raw), &pending, &summary); err != nil {
				if flushErr := flush(); flushErr != nil {
					r.logger.Error("flush after failure", zap.Error(flushErr))
				}
				return summary, err
			}
			if len(pending.receipts)+len(pending.rejections) >= r.cfg.BatchSize {
				if err := flush(); err != nil {
					return summary, err
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return summary, fmt.Errorf("read input: %w", readErr)
		}
	}
	if err := flush(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (r *Runner) process(ctx context.Context, lineNo uint64, line []byte, pending *batch, summary *Summary) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if len(line) == 0 {
		pending.lastLine = lineNo
		return nil
	}

	req, err := model.ParseRequest(line)
	if err == nil && !req.Op.Valid() {
		err = fmt.Errorf("unsupported operation %q", req.Op)
	}
	if err != nil {
		return r.reject(lineNo, req, fmt.Errorf("parse request: %w", err), pending, summary)
	}

	var receipt model.Receipt
	err = withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		receipt, err = r.engine.Execute(ctx, req)
		if err != nil && !deterministic(err) {
			r.logger.Warn("execute failed", zap.Error(err), zap.Uint64("line", lineNo))
		}
		return err
	})
	if err != nil {
		if !deterministic(err) || ctx.Err() != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		return r.reject(lineNo, req, err, pending, summary)
	}

	pending.receipts = append(pending.receipts, buildJournalEntry(lineNo, req, receipt, r.now()))
	pending.lastLine = lineNo
	summary.Applied++
	return nil
}

func (r *Runner) reject(lineNo uint64, req model.Request, err error, pending *batch, summary *Summary) error {
	if r.cfg.StopOnReject {
		return fmt.Errorf("line %d rejected: %w", lineNo, err)
	}
	pending.rejections = append(pending.rejections, buildRejection(lineNo, req, err))
	pending.lastLine = lineNo
	summary.Rejected++
	r.logger.Info("request rejected", zap.Uint64("line", lineNo), zap.String("op", string(req.Op)), zap.Error(err))
	return nil
}

func (r *Runner) fund(ctx context.Context) error {
	if len(r.cfg.Balances) == 0 {
		return nil
	}
	if r.funder == nil {
		return fmt.Errorf("opening balances configured without a funder")
	}
	for _, b := range r.cfg.Balances {
		if err := r.funder.Credit(ctx, b.Asset, b.Account, b.Amount); err != nil {
			return fmt.Errorf("credit %s to %s: %w", b.Asset.Hex(), b.Account.Hex(), err)
		}
	}
	r.logger.Info("opening balances credited", zap.Int("count", len(r.cfg.Balances)))
	return nil
}

func trimLine(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
