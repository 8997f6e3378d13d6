package errors

// ==========================
// Retry Policy
// ==========================

// retryBudgets maps error codes to the number of redelivery attempts the
// dispatcher grants before dead-lettering. Codes absent from the map get
// zero retries.
var retryBudgets = map[ErrorCode]int{
	ErrCodeEntityNotFound:           5,
	ErrCodeConcurrencyConflict:      3,
	ErrCodeTransportFailure:         5,
	ErrCodeDatabaseConnectionFailed: 5,
	ErrCodeQueryExecutionFailed:     3,
	ErrCodeQueryTimeout:             3,
	ErrCodeAuthFailed:               3,
	ErrCodeNoCapacity:               0, // re-queued to the backlog topic, not retried in place
}

// GetRetryCount returns the retry budget for an error code.
func GetRetryCount(code ErrorCode) int {
	return retryBudgets[code]
}

// GetErrorCategory groups error codes for logging and metrics.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeDuplicateEvent, ErrCodeUnknownEventType:
		return "ignorable"
	case ErrCodeInvalidTransition, ErrCodePayloadInvalid:
		return "policy"
	case ErrCodeEntityNotFound, ErrCodeTransportFailure, ErrCodeAuthFailed:
		return "upstream"
	case ErrCodeConcurrencyConflict, ErrCodeQueryExecutionFailed,
		ErrCodeQueryTimeout, ErrCodeDatabaseConnectionFailed:
		return "storage"
	case ErrCodeNoCapacity:
		return "capacity"
	default:
		return "internal"
	}
}
