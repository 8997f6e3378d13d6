// internal/models/history.go
package models

import "time"

// StatusHistory is one row of the append-only workflow audit trail. One row
// exists per applied event; event_id carries a unique constraint so redelivery
// of the same event can never produce a second row.
type StatusHistory struct {
	ID            int64     `json:"id"`
	EventID       string    `json:"eventId"`
	ApplicationID string    `json:"applicationId"`
	Status        string    `json:"status"`
	Comments      string    `json:"comments,omitempty"`
	UpdatedBy     string    `json:"updatedBy"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Version       int64     `json:"version"`
}
