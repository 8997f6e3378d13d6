// internal/common/aws/sns.go
package aws

import (
	"context"

	commonerrors "agrisure-workers/internal/common/errors"

	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type SNSClient struct {
	client *sns.Client
}

func NewSNSClient(ctx context.Context, region string) (*SNSClient, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(cfg)}, nil
}

func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	out, err := s.client.Publish(ctx, input)
	if err != nil {
		return nil, commonerrors.NewNotificationSendFailedError("sms", err)
	}
	return out, nil
}
