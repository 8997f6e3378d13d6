// internal/clients/applications.go

// Package clients wraps the read APIs of collaborator services. Every call
// takes the bearer token resolved by the handler: the token from the event
// when present, the service-account token otherwise.
package clients

import (
	"context"
	"fmt"
	"time"

	commonhttp "agrisure-workers/internal/common/http"
	"agrisure-workers/internal/models"
)

// ApplicationsClient reads applications and application types from the
// submissions service.
type ApplicationsClient struct {
	baseURL    string
	httpClient *commonhttp.Client
}

func NewApplicationsClient(baseURL string, timeout time.Duration) *ApplicationsClient {
	return &ApplicationsClient{
		baseURL:    baseURL,
		httpClient: commonhttp.NewClient(timeout),
	}
}

// GetApplication fetches one application by id. A 404 surfaces as
// REFERENCED_ENTITY_NOT_FOUND, which is retryable because events can outrun
// the record they reference.
func (c *ApplicationsClient) GetApplication(ctx context.Context, id, bearer string) (*models.Application, error) {
	var app models.Application
	url := fmt.Sprintf("%s/api/v1/applications/%s", c.baseURL, id)
	if err := c.httpClient.GetJSON(ctx, url, bearer, "application", id, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// GetApplicationType fetches the application type definition, including its
// section list used for document completeness checks.
func (c *ApplicationsClient) GetApplicationType(ctx context.Context, id, bearer string) (*models.ApplicationType, error) {
	var at models.ApplicationType
	url := fmt.Sprintf("%s/api/v1/application-types/%s", c.baseURL, id)
	if err := c.httpClient.GetJSON(ctx, url, bearer, "applicationType", id, &at); err != nil {
		return nil, err
	}
	return &at, nil
}
