package replay

import (
	"context"
	"errors"
	"time"

	"cpamm/internal/amm"
	"cpamm/internal/fixed"
	"cpamm/internal/ledger"
)

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || deterministic(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

// deterministic reports whether err would recur on every attempt, so the
// request is recorded as rejected instead of retried.
func deterministic(err error) bool {
	return amm.IsRejection(err) ||
		errors.Is(err, ledger.ErrInsufficientFunds) ||
		errors.Is(err, fixed.ErrOverflow) ||
		errors.Is(err, fixed.ErrUnderflow) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
