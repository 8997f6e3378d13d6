// internal/common/aws/aws.go

// Package aws wraps the SES and SNS clients used for applicant
// notifications. Send failures surface as NOTIFICATION_SEND_FAILED so the
// notify layer can log and count them without inspecting SDK error types.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

func loadConfig(ctx context.Context, region string) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx, config.WithRegion(region))
}
