// internal/notify/noop.go
package notify

import (
	"context"

	"agrisure-workers/internal/models"
)

// NoOpNotifier is used when both channels are disabled.
type NoOpNotifier struct{}

func (NoOpNotifier) StatusChanged(context.Context, *models.User, string, string) {}
