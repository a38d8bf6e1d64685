// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "threads/internal/delivery/context"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/errors"
	"threads/internal/infra/metrics"
	"threads/internal/util"
)

// boundedRunner applies the executor bound to single collaborator calls and
// records how each call ended.
type boundedRunner struct {
	recorder metrics.Recorder
	logger   *slog.Logger
}

func newBoundedRunner(recorder metrics.Recorder, logger *slog.Logger) *boundedRunner {
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &boundedRunner{recorder: recorder, logger: logger}
}

// boundedCall runs op under bound d. The operation name labels metrics and logs.
func boundedCall[T any](ctx context.Context, r *boundedRunner, operation string, d time.Duration, op func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	result, err := util.WithTimeout(ctx, d, op)
	r.record(ctx, operation, d, time.Since(start), err)

	return result, err
}

// boundedDo is boundedCall for operations without a result.
func boundedDo(ctx context.Context, r *boundedRunner, operation string, d time.Duration, op func(context.Context) error) error {
	start := time.Now()
	err := util.DoWithTimeout(ctx, d, op)
	r.record(ctx, operation, d, time.Since(start), err)

	return err
}

func (r *boundedRunner) record(ctx context.Context, operation string, d, elapsed time.Duration, err error) {
	switch {
	case err == nil:
		r.recorder.RecordBoundedOperation(operation, metrics.OutcomeSuccess, elapsed)
	case errors.Is(err, domainerrors.ErrTimedOut):
		r.recorder.RecordBoundedOperation(operation, metrics.OutcomeTimedOut, elapsed)
		deliverycontext.GetLoggerOrDefault(ctx, r.logger).WarnContext(ctx, "Collaborator call timed out",
			slog.String("operation", operation),
			slog.Duration("bound", d),
		)
	default:
		r.recorder.RecordBoundedOperation(operation, metrics.OutcomeError, elapsed)
	}
}
