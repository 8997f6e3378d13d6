// internal/models/verification.go
package models

import "time"

// Verification record statuses. The record's lifecycle is independent of,
// but correlated with, the workflow status history.
const (
	VerificationPending   = "PENDING"
	VerificationCompleted = "COMPLETED"
	VerificationRejected  = "REJECTED"
)

// VerificationRecord tracks one submission's field inspection. Each record
// references exactly one batch once assigned; event_id is unique so intake
// redelivery cannot create a second record.
type VerificationRecord struct {
	ID            string    `json:"id"`
	EventID       string    `json:"eventId"`
	ApplicationID string    `json:"applicationId"`
	BatchID       string    `json:"batchId"`
	Status        string    `json:"status"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
