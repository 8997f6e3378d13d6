// internal/models/collaborator.go
package models

// Read-model DTOs returned by other services' lookup APIs. These services own
// their stores; this process only ever reads them over HTTP.

type Application struct {
	ID                string `json:"id"`
	ApplicationTypeID string `json:"applicationTypeId"`
	UserID            string `json:"userId"`
	Status            string `json:"status"`
	Version           int64  `json:"version"`
}

type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type ApplicationType struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Sections []string `json:"sections"`
}
