// internal/verification/allocator.go
package verification

import (
	"context"
	"time"

	commonerrors "agrisure-workers/internal/common/errors"
	"agrisure-workers/internal/common/logger"
	"agrisure-workers/internal/common/metrics"
	"agrisure-workers/internal/models"
)

// Allocator places a submission into an open batch. Selection and assignment
// are deliberately separate steps: the candidate list is a snapshot, the
// transactional slot-take is the source of truth. A candidate that filled up
// after selection simply reports full and the next one is tried.
type Allocator struct {
	batches BatchStore
	logger  logger.Logger
}

func NewAllocator(batches BatchStore, log logger.Logger) *Allocator {
	return &Allocator{batches: batches, logger: log}
}

// Allocate assigns the record to the first batch with a free slot and
// returns that batch's id, or NO_CAPACITY when every candidate is full.
// NO_CAPACITY never drops the submission; the caller re-queues it. A record
// that already exists for the event surfaces as DUPLICATE_EVENT without
// consuming a slot.
func (a *Allocator) Allocate(ctx context.Context, applicationTypeID string, rec *models.VerificationRecord) (string, error) {
	now := time.Now().UTC()

	candidates, err := a.batches.SelectableBatches(ctx, applicationTypeID, now)
	if err != nil {
		return "", err
	}

	for _, b := range candidates {
		outcome, err := a.batches.AssignAndCreate(ctx, b.ID, rec)
		if err != nil {
			return "", err
		}
		switch outcome {
		case AssignmentApplied:
			rec.BatchID = b.ID
			return b.ID, nil
		case AssignmentDuplicate:
			return "", commonerrors.NewDuplicateEventError(rec.EventID)
		}
		a.logger.Debug("batch filled during assignment", map[string]interface{}{
			"batchId":           b.ID,
			"applicationTypeId": applicationTypeID,
		})
	}

	metrics.AllocationNoCapacity.Inc()
	return "", commonerrors.NewNoCapacityError(applicationTypeID)
}
