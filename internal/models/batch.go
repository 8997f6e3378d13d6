// internal/models/batch.go
package models

import "time"

// Batch is a capacity- and time-window-bounded collection point for incoming
// submissions. assigned_count <= max_applications holds at all times; the
// store enforces it with a conditional increment.
type Batch struct {
	ID                string    `json:"id"`
	ApplicationTypeID string    `json:"applicationTypeId"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	MaxApplications   int       `json:"maxApplications"`
	AssignedCount     int       `json:"assignedCount"`
	IsAvailable       bool      `json:"isAvailable"`
}

// Selectable reports whether the batch can take a new assignment at the
// given instant. The end of the window is exclusive.
func (b Batch) Selectable(now time.Time) bool {
	if !b.IsAvailable {
		return false
	}
	if now.Before(b.StartDate) || !now.Before(b.EndDate) {
		return false
	}
	return b.AssignedCount < b.MaxApplications
}
