package util

import (
	"context"
	"fmt"
	"time"

	domainerrors "threads/internal/domain/errors"
	"threads/internal/errors"
)

type outcome[T any] struct {
	value T
	err   error
}

// WithTimeout runs op and waits at most d for it to finish.
//
// Exactly one result reaches the caller: op's value, op's own error
// (unchanged), or domain ErrTimedOut once d elapses. On timeout op's context
// is cancelled; whether the work really stops is up to op. Cancelling ctx
// resolves the call with ctx's error. There is no retry.
func WithTimeout[T any](ctx context.Context, d time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if d <= 0 {
		return zero, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(fmt.Sprintf("timeout must be positive, got %s", d)))
	}
	if err := ctx.Err(); err != nil {
		return zero, errors.WithStack(err)
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the losing side never blocks on send.
	results := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- outcome[T]{err: errors.WithStack(domainerrors.ErrInternalError.WithDetails(fmt.Sprintf("operation panicked: %v", r)))}
			}
		}()

		value, err := op(opCtx)
		results <- outcome[T]{value: value, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case res := <-results:
		return res.value, res.err
	case <-timer.C:
		return zero, errors.Wrapf(domainerrors.ErrTimedOut, "operation exceeded %s", d)
	case <-ctx.Done():
		return zero, errors.WithStack(ctx.Err())
	}
}

// DoWithTimeout is WithTimeout for operations without a result value.
func DoWithTimeout(ctx context.Context, d time.Duration, op func(ctx context.Context) error) error {
	_, err := WithTimeout(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})

	return err
}
