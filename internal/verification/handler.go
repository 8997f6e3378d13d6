// internal/verification/handler.go
package verification

import (
	"context"
	"time"

	commonerrors "agrisure-workers/internal/common/errors"
	"agrisure-workers/internal/common/kafka"
	"agrisure-workers/internal/common/logger"
	"agrisure-workers/internal/common/metrics"
	"agrisure-workers/internal/events"
	"agrisure-workers/internal/models"
	"agrisure-workers/internal/workflow"

	"github.com/google/uuid"
)

// redriveInterval paces the backlog consumer. Capacity comes back when a new
// batch window opens, not within milliseconds, so re-drives are rationed to
// one per tick instead of spinning records through publish/consume.
const redriveInterval = 30 * time.Second

// Handler consumes intake submissions and verification results.
type Handler struct {
	records  RecordStore
	alloc    *Allocator
	guard    *workflow.IdempotencyGuard
	producer kafka.Publisher
	redrive  *time.Ticker
	logger   logger.Logger
}

func NewHandler(
	records RecordStore,
	alloc *Allocator,
	guard *workflow.IdempotencyGuard,
	producer kafka.Publisher,
	log logger.Logger,
) *Handler {
	return &Handler{
		records:  records,
		alloc:    alloc,
		guard:    guard,
		producer: producer,
		redrive:  time.NewTicker(redriveInterval),
		logger:   log,
	}
}

// HandleSubmission allocates a batch slot for a new submission and creates
// its PENDING verification record in the same transaction. A submission that
// finds no capacity is re-queued to the backlog topic, never dropped.
func (h *Handler) HandleSubmission(ctx context.Context, env *events.Envelope) error {
	// One verification record per application: an existing record means this
	// submission, or a redelivery of it, was already handled.
	existing, err := h.records.ByApplication(ctx, env.Payload.ApplicationID)
	if err != nil {
		return err
	}
	if existing != nil {
		metrics.DuplicateEvents.WithLabelValues(env.EventType).Inc()
		return commonerrors.NewDuplicateEventError(env.EventID)
	}

	rec := &models.VerificationRecord{
		ID:            uuid.NewString(),
		EventID:       env.EventID,
		ApplicationID: env.Payload.ApplicationID,
		Status:        models.VerificationPending,
		Version:       1,
		CreatedAt:     time.Now().UTC(),
	}

	batchID, err := h.alloc.Allocate(ctx, env.Payload.ApplicationTypeID, rec)
	if err != nil {
		if commonerrors.IsCode(err, commonerrors.ErrCodeNoCapacity) {
			return h.requeue(ctx, env)
		}
		if commonerrors.IsCode(err, commonerrors.ErrCodeDuplicateEvent) {
			metrics.DuplicateEvents.WithLabelValues(env.EventType).Inc()
		}
		return err
	}

	h.logger.Info("submission assigned to batch", map[string]interface{}{
		"applicationId": env.Payload.ApplicationID,
		"batchId":       batchID,
	})
	return nil
}

// HandleBacklog feeds a parked submission back through the intake path, one
// record per pacing tick. The backlog consumer runs without a handler
// timeout so the wait never dead-letters a healthy record.
func (h *Handler) HandleBacklog(ctx context.Context, env *events.Envelope) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.redrive.C:
	}
	return h.HandleSubmission(ctx, env)
}

// HandleResult applies VERIFICATION_COMPLETED / VERIFICATION_REJECTED to the
// record through the versioned update path.
func (h *Handler) HandleResult(ctx context.Context, env *events.Envelope) error {
	status := models.VerificationCompleted
	if env.EventType == events.TypeVerificationRejected {
		status = models.VerificationRejected
	}

	err := workflow.WithConflictRetry(ctx, "verificationRecord", 3, func(ctx context.Context) error {
		rec, err := h.records.ByApplication(ctx, env.Payload.ApplicationID)
		if err != nil {
			return err
		}
		if rec == nil {
			return commonerrors.NewEntityNotFoundError("verificationRecord", env.Payload.ApplicationID)
		}
		return h.records.ApplyResult(ctx, h.guard, env.EventID, kafka.TopicVerificationEvents, rec, status)
	})
	if commonerrors.IsCode(err, commonerrors.ErrCodeDuplicateEvent) {
		metrics.DuplicateEvents.WithLabelValues(env.EventType).Inc()
	}
	return err
}

func (h *Handler) requeue(ctx context.Context, env *events.Envelope) error {
	b, err := events.Encode(env)
	if err != nil {
		return err
	}
	if err := h.producer.Publish(ctx, kafka.TopicVerificationBacklog, env.Payload.ApplicationID, b); err != nil {
		return err
	}
	h.logger.Warn("no batch capacity, submission re-queued", map[string]interface{}{
		"applicationId":     env.Payload.ApplicationID,
		"applicationTypeId": env.Payload.ApplicationTypeID,
	})
	return nil
}
