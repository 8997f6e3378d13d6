// internal/document/handler.go

// Package document records document attach/verify events as auditable
// history rows. Documents never move the lifecycle; the row keeps the
// application's current status and only adds a comment.
package document

import (
	"context"
	"fmt"
	"time"

	commonerrors "agrisure-workers/internal/common/errors"
	"agrisure-workers/internal/common/logger"
	"agrisure-workers/internal/common/metrics"
	"agrisure-workers/internal/events"
	"agrisure-workers/internal/models"
	"agrisure-workers/internal/workflow"
)

type Handler struct {
	store  workflow.HistoryStore
	logger logger.Logger
}

func NewHandler(store workflow.HistoryStore, log logger.Logger) *Handler {
	return &Handler{store: store, logger: log}
}

// HandleDocumentEvent appends one comment row at the application's current
// status. Runs under conflict retry because a lifecycle append can take the
// next version slot concurrently.
func (h *Handler) HandleDocumentEvent(ctx context.Context, env *events.Envelope) error {
	return workflow.WithConflictRetry(ctx, "statusHistory", 3, func(ctx context.Context) error {
		latest, err := h.store.LatestByApplication(ctx, env.Payload.ApplicationID)
		if err != nil {
			return err
		}
		if latest == nil {
			return commonerrors.NewEntityNotFoundError("statusHistory", env.Payload.ApplicationID)
		}

		row := &models.StatusHistory{
			EventID:       env.EventID,
			ApplicationID: env.Payload.ApplicationID,
			Status:        latest.Status,
			Comments:      comment(env),
			UpdatedBy:     updatedBy(env),
			UpdatedAt:     time.Now().UTC(),
			Version:       latest.Version + 1,
		}

		applied, err := h.store.AppendIfAbsent(ctx, row)
		if err != nil {
			return err
		}
		if !applied {
			metrics.DuplicateEvents.WithLabelValues(env.EventType).Inc()
			return commonerrors.NewDuplicateEventError(env.EventID)
		}

		h.logger.Info("document event recorded", map[string]interface{}{
			"applicationId": env.Payload.ApplicationID,
			"documentId":    env.Payload.DocumentID,
			"eventType":     env.EventType,
		})
		return nil
	})
}

func comment(env *events.Envelope) string {
	action := "attached"
	if env.EventType == events.TypeDocumentVerified {
		action = "verified"
	}
	if env.Payload.Comments != "" {
		return fmt.Sprintf("Document %s %s: %s", env.Payload.DocumentID, action, env.Payload.Comments)
	}
	return fmt.Sprintf("Document %s %s", env.Payload.DocumentID, action)
}

func updatedBy(env *events.Envelope) string {
	if env.Payload.UserID != "" {
		return env.Payload.UserID
	}
	return "system"
}
