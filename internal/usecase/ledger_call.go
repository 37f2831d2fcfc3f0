package usecase

import (
	"context"
	"errors"
	"time"

	"certichain/internal/domain"
)

// DefaultLedgerTimeout bounds a single ledger read when no timeout is set.
const DefaultLedgerTimeout = 10 * time.Second

// callLedger runs fn under its own deadline. An expired deadline becomes a
// transient LedgerError; cancellation by the caller is returned unchanged.
func callLedger[T any](ctx context.Context, timeout time.Duration, obs Observer, op string, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultLedgerTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := fn(callCtx)
	observerOrNoop(obs).ObserveLedgerCall(op, time.Since(start), err)
	if err == nil {
		return out, nil
	}

	var zero T
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return zero, &domain.LedgerError{Op: op, Kind: domain.ErrTransient, Reason: "timed out after " + timeout.String(), Err: err}
	}
	var ledgerErr *domain.LedgerError
	if errors.As(err, &ledgerErr) {
		return zero, err
	}
	// Unclassified read failures are treated as transport trouble.
	return zero, &domain.LedgerError{Op: op, Kind: domain.ErrTransient, Err: err}
}
