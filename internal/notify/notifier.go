// internal/notify/notifier.go

// Package notify delivers terminal-status notifications to applicants.
// Delivery is best-effort: a failed send is logged and counted, never
// propagated into the event acknowledgment path.
package notify

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"agrisure-workers/internal/common/aws"
	"agrisure-workers/internal/common/config"
	"agrisure-workers/internal/common/logger"
	"agrisure-workers/internal/common/metrics"
	"agrisure-workers/internal/models"
)

// Notifier tells an applicant their application reached a final status.
type Notifier interface {
	StatusChanged(ctx context.Context, user *models.User, applicationID, status string)
}

// AWSNotifier sends email through SES and SMS through SNS, each channel
// independently switchable in config.
type AWSNotifier struct {
	ses    *aws.SESClient
	sns    *aws.SNSClient
	cfg    config.NotificationConfig
	logger logger.Logger
}

func NewAWSNotifier(sesClient *aws.SESClient, snsClient *aws.SNSClient, cfg config.NotificationConfig, log logger.Logger) *AWSNotifier {
	return &AWSNotifier{ses: sesClient, sns: snsClient, cfg: cfg, logger: log}
}

func (n *AWSNotifier) StatusChanged(ctx context.Context, user *models.User, applicationID, status string) {
	if user == nil {
		return
	}

	if n.cfg.Email.Enabled && user.Email != "" {
		if err := n.sendEmail(ctx, user, applicationID, status); err != nil {
			n.logger.Warn("status email failed", map[string]interface{}{
				"applicationId": applicationID,
				"error":         err.Error(),
			})
			metrics.NotificationsSent.WithLabelValues("email", "error").Inc()
		} else {
			metrics.NotificationsSent.WithLabelValues("email", "ok").Inc()
		}
	}

	if n.cfg.SMS.Enabled && user.Phone != "" {
		if err := n.sendSMS(ctx, user, applicationID, status); err != nil {
			n.logger.Warn("status sms failed", map[string]interface{}{
				"applicationId": applicationID,
				"error":         err.Error(),
			})
			metrics.NotificationsSent.WithLabelValues("sms", "error").Inc()
		} else {
			metrics.NotificationsSent.WithLabelValues("sms", "ok").Inc()
		}
	}
}

func (n *AWSNotifier) sendEmail(ctx context.Context, user *models.User, applicationID, status string) error {
	subject := fmt.Sprintf("Application %s: %s", applicationID, statusPhrase(status))
	body := fmt.Sprintf(
		"Dear %s %s,\n\nYour application %s %s.\n\nAgriSure Insurance",
		user.FirstName, user.LastName, applicationID, statusPhrase(status),
	)

	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: awssdk.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{user.Email},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(body)},
			},
		},
	})
	return err
}

func (n *AWSNotifier) sendSMS(ctx context.Context, user *models.User, applicationID, status string) error {
	message := fmt.Sprintf("AgriSure: application %s %s.", applicationID, statusPhrase(status))

	input := &sns.PublishInput{
		Message:     awssdk.String(message),
		PhoneNumber: awssdk.String(user.Phone),
	}
	if n.cfg.SMS.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(n.cfg.SMS.SenderID),
			},
		}
	}

	_, err := n.sns.Publish(ctx, input)
	return err
}

func statusPhrase(status string) string {
	switch status {
	case "CLAIM_APPROVED":
		return "claim has been approved"
	case "CANCELLED_BY_USER":
		return "has been cancelled"
	case "REJECTED_BY_MA", "REJECTED_BY_AEW", "REJECTED_BY_UNDERWRITER", "REJECTED_BY_ADJUSTER":
		return "has been rejected"
	default:
		return "status changed to " + status
	}
}
