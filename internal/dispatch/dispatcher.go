// internal/dispatch/dispatcher.go

// Package dispatch routes decoded events to their handlers. The routing table
// is explicit and frozen at startup: one handler per (topic, eventType) pair,
// no reflection, no dynamic registration.
package dispatch

import (
	"context"
	"time"

	commonerrors "agrisure-workers/internal/common/errors"
	"agrisure-workers/internal/common/logger"
	"agrisure-workers/internal/common/metrics"
	"agrisure-workers/internal/events"
)

// Handler applies one event. The envelope has already passed schema
// validation when the handler runs.
type Handler func(ctx context.Context, env *events.Envelope) error

// Dispatcher owns the topic routing table and the per-handler timeout.
type Dispatcher struct {
	routes  map[string]map[string]Handler
	timeout time.Duration
	logger  logger.Logger
}

func New(timeout time.Duration, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		routes:  make(map[string]map[string]Handler),
		timeout: timeout,
		logger:  log,
	}
}

// Register binds a handler to a (topic, eventType) pair. Called once per pair
// during startup, before any consumer runs.
func (d *Dispatcher) Register(topic, eventType string, h Handler) {
	if d.routes[topic] == nil {
		d.routes[topic] = make(map[string]Handler)
	}
	d.routes[topic][eventType] = h
}

// Dispatch decodes the raw record and invokes the matching handler under the
// per-handler timeout. Event types with no route surface UNKNOWN_EVENT_TYPE,
// which the consumer logs and acknowledges.
func (d *Dispatcher) Dispatch(ctx context.Context, topic string, raw []byte) error {
	env, err := events.Decode(raw)
	if err != nil {
		return err
	}

	handler, ok := d.routes[topic][env.EventType]
	if !ok {
		return commonerrors.NewUnknownEventTypeError(env.EventType)
	}

	d.logger.Debug("dispatching event", map[string]interface{}{
		"topic":         topic,
		"eventId":       env.EventID,
		"eventType":     env.EventType,
		"applicationId": env.Payload.ApplicationID,
	})

	hctx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	err = handler(hctx, env)
	metrics.HandlerDuration.WithLabelValues(topic, env.EventType).Observe(time.Since(start).Seconds())
	return err
}
