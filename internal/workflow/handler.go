// internal/workflow/handler.go

// Package workflow applies lifecycle events to the append-only status
// history. The append itself is the idempotency claim: the unique event_id
// constraint means a redelivered event can never produce a second row.
package workflow

import (
	"context"
	"encoding/json"
	"time"

	"agrisure-workers/internal/common/auth"
	commonerrors "agrisure-workers/internal/common/errors"
	"agrisure-workers/internal/common/kafka"
	"agrisure-workers/internal/common/logger"
	"agrisure-workers/internal/common/metrics"
	"agrisure-workers/internal/events"
	"agrisure-workers/internal/lifecycle"
	"agrisure-workers/internal/models"
	"agrisure-workers/internal/notify"
)

// ApplicationReader verifies that a referenced application and its type
// exist upstream.
type ApplicationReader interface {
	GetApplication(ctx context.Context, id, bearer string) (*models.Application, error)
	GetApplicationType(ctx context.Context, id, bearer string) (*models.ApplicationType, error)
}

// UserReader resolves applicant contact details for notifications.
type UserReader interface {
	GetUser(ctx context.Context, id, bearer string) (*models.User, error)
}

// HistoryIndexer mirrors applied rows into a search index for ops audit.
type HistoryIndexer interface {
	Index(ctx context.Context, index, docID string, body []byte) error
}

const maxConflictRetries = 3

// Handler consumes lifecycle events and appends history rows.
type Handler struct {
	store    HistoryStore
	apps     ApplicationReader
	users    UserReader
	tokens   auth.TokenSource
	producer kafka.Publisher
	indexer  HistoryIndexer
	index    string
	notifier notify.Notifier
	logger   logger.Logger
}

func NewHandler(
	store HistoryStore,
	apps ApplicationReader,
	users UserReader,
	tokens auth.TokenSource,
	producer kafka.Publisher,
	indexer HistoryIndexer,
	index string,
	notifier notify.Notifier,
	log logger.Logger,
) *Handler {
	return &Handler{
		store:    store,
		apps:     apps,
		users:    users,
		tokens:   tokens,
		producer: producer,
		indexer:  indexer,
		index:    index,
		notifier: notifier,
		logger:   log,
	}
}

// HandleWorkflowEvent applies an event and fans the applied status out to the
// application-lifecycle topic for downstream observers.
func (h *Handler) HandleWorkflowEvent(ctx context.Context, env *events.Envelope) error {
	return h.apply(ctx, env, true)
}

// HandleLifecycleEvent applies an event that already arrived on the
// application-lifecycle topic. No fan-out, or the topic would feed itself.
func (h *Handler) HandleLifecycleEvent(ctx context.Context, env *events.Envelope) error {
	return h.apply(ctx, env, false)
}

func (h *Handler) apply(ctx context.Context, env *events.Envelope, fanout bool) error {
	bearer, err := h.bearer(ctx, env)
	if err != nil {
		return err
	}

	return WithConflictRetry(ctx, "statusHistory", maxConflictRetries, func(ctx context.Context) error {
		return h.applyOnce(ctx, env, bearer, fanout)
	})
}

// applyOnce runs one read-transition-append attempt. A conflicting concurrent
// append surfaces as CONCURRENCY_CONFLICT and the caller re-runs the whole
// attempt against the version that won.
func (h *Handler) applyOnce(ctx context.Context, env *events.Envelope, bearer string, fanout bool) error {
	applicationID := env.Payload.ApplicationID

	latest, err := h.store.LatestByApplication(ctx, applicationID)
	if err != nil {
		return err
	}

	var next lifecycle.Status
	var version int64

	switch {
	case latest == nil && lifecycle.IsIntake(env.EventType):
		app, err := h.apps.GetApplication(ctx, applicationID, bearer)
		if err != nil {
			return err
		}
		if _, err := h.apps.GetApplicationType(ctx, app.ApplicationTypeID, bearer); err != nil {
			return err
		}
		next = lifecycle.StatusSubmitted
		version = 1

	case latest == nil:
		// Events can outrun the intake that creates the record. Retryable:
		// the intake normally lands within the retry budget.
		return commonerrors.NewEntityNotFoundError("statusHistory", applicationID)

	default:
		// The duplicate check comes before any policy check. A replayed
		// event whose state has since advanced must drop, not dead-letter
		// as a transition violation.
		dup, err := h.alreadyApplied(ctx, env, latest)
		if err != nil {
			return err
		}
		if dup {
			metrics.DuplicateEvents.WithLabelValues(env.EventType).Inc()
			return commonerrors.NewDuplicateEventError(env.EventID)
		}

		if lifecycle.IsIntake(env.EventType) {
			metrics.TransitionsRejected.WithLabelValues(env.EventType).Inc()
			return commonerrors.NewInvalidTransitionError(latest.Status, env.EventType)
		}

		next, err = lifecycle.Transition(lifecycle.Status(latest.Status), env.EventType)
		if err != nil {
			if commonerrors.IsCode(err, commonerrors.ErrCodeInvalidTransition) {
				metrics.TransitionsRejected.WithLabelValues(env.EventType).Inc()
			}
			return err
		}
		version = latest.Version + 1
	}

	row := &models.StatusHistory{
		EventID:       env.EventID,
		ApplicationID: applicationID,
		Status:        string(next),
		Comments:      env.Payload.Comments,
		UpdatedBy:     updatedBy(env),
		UpdatedAt:     time.Now().UTC(),
		Version:       version,
	}

	applied, err := h.store.AppendIfAbsent(ctx, row)
	if err != nil {
		return err
	}
	if !applied {
		metrics.DuplicateEvents.WithLabelValues(env.EventType).Inc()
		return commonerrors.NewDuplicateEventError(env.EventID)
	}

	h.logger.Info("status applied", map[string]interface{}{
		"applicationId": applicationID,
		"eventType":     env.EventType,
		"status":        row.Status,
		"version":       row.Version,
	})

	h.indexRow(ctx, row)

	if fanout {
		h.publishLifecycle(ctx, env, row)
	}

	if lifecycle.IsTerminal(next) {
		h.notifyTerminal(ctx, env, bearer, row.Status)
	}
	return nil
}

// alreadyApplied recognizes a redelivered event by its id. The latest row
// catches the common replay; older rows need the event_id lookup because the
// application has moved on since they were applied.
func (h *Handler) alreadyApplied(ctx context.Context, env *events.Envelope, latest *models.StatusHistory) (bool, error) {
	if latest.EventID == env.EventID {
		return true, nil
	}
	return h.store.EventApplied(ctx, env.EventID)
}

// bearer resolves the credential for collaborator calls: the token carried by
// the event when present, the service account otherwise.
func (h *Handler) bearer(ctx context.Context, env *events.Envelope) (string, error) {
	if env.Payload.AuthToken != "" {
		return env.Payload.AuthToken, nil
	}
	if h.tokens == nil {
		return "", nil
	}
	return h.tokens.Token(ctx)
}

// indexRow mirrors the applied row into the search index. Best-effort: the
// row is already durable in Postgres.
func (h *Handler) indexRow(ctx context.Context, row *models.StatusHistory) {
	if h.indexer == nil {
		return
	}
	body, err := json.Marshal(row)
	if err == nil {
		err = h.indexer.Index(ctx, h.index, row.EventID, body)
	}
	if err != nil {
		h.logger.Warn("history index failed", map[string]interface{}{
			"applicationId": row.ApplicationID,
			"eventId":       row.EventID,
			"error":         err.Error(),
		})
	}
}

// publishLifecycle announces the applied status. Best-effort after the
// append: failing the record here would only replay into a duplicate drop,
// so a lost fan-out is logged rather than retried through redelivery.
func (h *Handler) publishLifecycle(ctx context.Context, env *events.Envelope, row *models.StatusHistory) {
	if h.producer == nil {
		return
	}
	out := &events.Envelope{
		EventID:    env.EventID,
		EventType:  env.EventType,
		OccurredAt: env.OccurredAt,
		Payload: events.Payload{
			ApplicationID: row.ApplicationID,
			UserID:        env.Payload.UserID,
			Status:        row.Status,
			Version:       row.Version,
			Comments:      row.Comments,
		},
	}
	b, err := events.Encode(out)
	if err == nil {
		err = h.producer.Publish(ctx, kafka.TopicApplicationLifecycle, row.ApplicationID, b)
	}
	if err != nil {
		h.logger.Warn("lifecycle publish failed", map[string]interface{}{
			"applicationId": row.ApplicationID,
			"eventId":       row.EventID,
			"error":         err.Error(),
		})
	}
}

func (h *Handler) notifyTerminal(ctx context.Context, env *events.Envelope, bearer, status string) {
	if h.notifier == nil || h.users == nil || env.Payload.UserID == "" {
		return
	}
	user, err := h.users.GetUser(ctx, env.Payload.UserID, bearer)
	if err != nil {
		h.logger.Warn("user lookup for notification failed", map[string]interface{}{
			"userId": env.Payload.UserID,
			"error":  err.Error(),
		})
		return
	}
	h.notifier.StatusChanged(ctx, user, env.Payload.ApplicationID, status)
}

func updatedBy(env *events.Envelope) string {
	if env.Payload.UserID != "" {
		return env.Payload.UserID
	}
	return "system"
}
