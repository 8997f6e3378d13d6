// internal/workflow/concurrency.go
package workflow

import (
	"context"

	commonerrors "agrisure-workers/internal/common/errors"
	"agrisure-workers/internal/common/metrics"
)

// WithConflictRetry runs a versioned mutation, re-running it after each
// optimistic-lock conflict. The mutation re-reads current state on every
// attempt, so a retry recomputes against the version that won. After the
// bound the last CONCURRENCY_CONFLICT surfaces to the dispatcher.
func WithConflictRetry(ctx context.Context, entity string, attempts int, mutation func(context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = mutation(ctx)
		if err == nil || !commonerrors.IsCode(err, commonerrors.ErrCodeConcurrencyConflict) {
			return err
		}
		metrics.ConcurrencyConflicts.WithLabelValues(entity).Inc()
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
