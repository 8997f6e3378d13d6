// internal/workflow/guard.go
package workflow

import (
	"context"
	"database/sql"

	commonerrors "agrisure-workers/internal/common/errors"
)

// IdempotencyGuard claims event ids before side effects that are not
// themselves guarded by a unique insert. The claim is the atomic
// INSERT ... ON CONFLICT DO NOTHING; a read-then-insert would race between
// consumer instances.
type IdempotencyGuard struct{}

func NewIdempotencyGuard() *IdempotencyGuard {
	return &IdempotencyGuard{}
}

const claimQuery = `
	INSERT INTO processed_events (event_id, topic, processed_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (event_id) DO NOTHING`

// TryClaimTx registers the event id inside a caller-owned transaction, so
// the claim commits or rolls back together with the domain write it
// protects. It returns false when another delivery of the same event
// already claimed it.
func (g *IdempotencyGuard) TryClaimTx(ctx context.Context, tx *sql.Tx, eventID, topic string) (bool, error) {
	res, err := tx.ExecContext(ctx, claimQuery, eventID, topic)
	if err != nil {
		return false, commonerrors.NewQueryExecutionFailedError("claim event", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, commonerrors.NewQueryExecutionFailedError("claim event", err)
	}
	return n == 1, nil
}
