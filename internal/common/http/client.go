// internal/common/http/client.go

// Package http wraps collaborator HTTP reads with the error typing the
// consumers expect: a 404 is REFERENCED_ENTITY_NOT_FOUND for the named
// entity, everything else that fails is a retryable TRANSPORT_FAILURE.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	commonerrors "agrisure-workers/internal/common/errors"
)

type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetJSON fetches url with the bearer credential and decodes the response
// body into out.
func (c *Client) GetJSON(ctx context.Context, url, bearer, entity, id string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return commonerrors.NewTransportFailureError(url, err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return commonerrors.NewTransportFailureError(url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return commonerrors.NewEntityNotFoundError(entity, id)
	case resp.StatusCode != http.StatusOK:
		return commonerrors.NewTransportFailureError(url,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return commonerrors.NewTransportFailureError(url, err)
	}
	return nil
}
