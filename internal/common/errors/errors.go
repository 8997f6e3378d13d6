// Package errors provides standardized error handling for event choreography.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeDuplicateEvent     ErrorCode = "DUPLICATE_EVENT"
	ErrCodeUnknownEventType   ErrorCode = "UNKNOWN_EVENT_TYPE"
	ErrCodePayloadInvalid     ErrorCode = "PAYLOAD_INVALID"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	ErrCodeEntityNotFound     ErrorCode = "REFERENCED_ENTITY_NOT_FOUND"
	ErrCodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"
	ErrCodeNoCapacity         ErrorCode = "NO_CAPACITY"
	ErrCodeTransportFailure   ErrorCode = "TRANSPORT_FAILURE"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeAuthFailed       ErrorCode = "AUTH_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the error code from any error chain. Unwrapped errors
// report as INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
}

// IsRetryable reports whether the error may succeed on redelivery.
// Errors outside the taxonomy are treated as non-retryable.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ==========================
// 2. Error Constructors
// ==========================

// NewDuplicateEventError marks an event already applied. Non-fatal: the
// dispatcher acknowledges and drops it.
func NewDuplicateEventError(eventID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateEvent,
		Message:   "Event already applied",
		Details:   fmt.Sprintf("eventId: %s", eventID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownEventTypeError creates a non-retryable error for event types
// missing from the routing table. Logged and acknowledged, never retried.
func NewUnknownEventTypeError(eventType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownEventType,
		Message:   "No handler registered for event type",
		Details:   fmt.Sprintf("eventType: %s", eventType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayloadInvalidError creates a non-retryable envelope validation error.
func NewPayloadInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadInvalid,
		Message:   "Event envelope failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError creates a non-retryable lifecycle policy
// violation. Redelivery cannot fix it, so it dead-letters immediately.
func NewInvalidTransitionError(current, eventType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Event does not originate from the record's current status",
		Details:   fmt.Sprintf("currentStatus: %s, eventType: %s", current, eventType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEntityNotFoundError creates a retryable error for a collaborator 404.
// Intake and lifecycle events can arrive out of order across topics, so the
// referenced entity may simply not exist yet.
func NewEntityNotFoundError(entity, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEntityNotFound,
		Message:   "Referenced entity missing upstream",
		Details:   fmt.Sprintf("entity: %s, id: %s", entity, id),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConcurrencyConflictError creates a retryable optimistic-lock failure.
func NewConcurrencyConflictError(recordID string, expectedVersion int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeConcurrencyConflict,
		Message:   "Stored version no longer matches expected version",
		Details:   fmt.Sprintf("recordId: %s, expectedVersion: %d", recordID, expectedVersion),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoCapacityError means every selectable batch is full. The submission is
// re-queued, never dropped.
func NewNoCapacityError(applicationTypeID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoCapacity,
		Message:   "No open batch with remaining capacity",
		Details:   fmt.Sprintf("applicationTypeId: %s", applicationTypeID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportFailureError creates a retryable timeout/connection error.
func NewTransportFailureError(target string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransportFailure,
		Message:   "Outbound call failed",
		Details:   fmt.Sprintf("target: %s, error: %s", target, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthFailedError creates a retryable token acquisition error.
func NewAuthFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthFailed,
		Message:   "Failed to acquire service credential",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a non-retryable delivery error.
// Notifications are best-effort and must never block acknowledgment.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
