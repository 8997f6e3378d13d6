// internal/common/aws/ses.go
package aws

import (
	"context"

	commonerrors "agrisure-workers/internal/common/errors"

	"github.com/aws/aws-sdk-go-v2/service/ses"
)

type SESClient struct {
	client *ses.Client
}

func NewSESClient(ctx context.Context, region string) (*SESClient, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return &SESClient{client: ses.NewFromConfig(cfg)}, nil
}

func (s *SESClient) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return nil, commonerrors.NewNotificationSendFailedError("email", err)
	}
	return out, nil
}
