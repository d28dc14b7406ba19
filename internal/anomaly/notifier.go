package anomaly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	awsclient "billing-tools/internal/common/aws"
	apperrors "billing-tools/internal/common/errors"
)

// Notifier alerts about an anomalous prediction.
type Notifier interface {
	Notify(ctx context.Context, prediction Prediction) error
}

type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, prediction Prediction) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, prediction); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func alertSubject(p Prediction) string {
	return fmt.Sprintf("Invoice anomaly for tenant %s", p.Invoice.TenantID)
}

// maxSNSSubject is the SNS limit on subject length.
const maxSNSSubject = 100

// snsSubject keeps the subject printable ASCII and within the SNS limit.
func snsSubject(p Prediction) string {
	var b strings.Builder
	for _, r := range alertSubject(p) {
		if b.Len() == maxSNSSubject {
			break
		}
		if r < 0x20 || r > 0x7e {
			r = '?'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func alertText(p Prediction) string {
	return fmt.Sprintf(
		"Prediction %s flagged an invoice for customer %s of tenant %s.\n\nAmount: %s %s\nConfidence: %.2f\nReason: %s\nPredicted at: %s\n",
		p.ID, p.Invoice.CustomerID, p.Invoice.TenantID,
		formatFloat(p.Invoice.Amount), p.Invoice.Currency,
		p.Result.ConfidenceScore, p.Result.Reason,
		p.PredictedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	)
}

// SNSNotifier publishes the prediction as JSON to a topic.
type SNSNotifier struct {
	client   awsclient.SNSService
	topicARN string
}

func NewSNSNotifier(client awsclient.SNSService, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

func (n *SNSNotifier) Notify(ctx context.Context, prediction Prediction) error {
	message, err := json.Marshal(prediction)
	if err != nil {
		return apperrors.NewAlertSendFailedError("sns", err)
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(snsSubject(prediction)),
		Message:  aws.String(string(message)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"tenant_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(prediction.Invoice.TenantID),
			},
		},
	})
	if err != nil {
		return apperrors.NewAlertSendFailedError("sns", err)
	}
	return nil
}

// SESNotifier emails a plain-text summary to fixed recipients.
type SESNotifier struct {
	client     awsclient.SESService
	fromEmail  string
	recipients []string
}

func NewSESNotifier(client awsclient.SESService, fromEmail string, recipients []string) *SESNotifier {
	return &SESNotifier{client: client, fromEmail: fromEmail, recipients: recipients}
}

func (n *SESNotifier) Notify(ctx context.Context, prediction Prediction) error {
	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: n.recipients,
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(alertSubject(prediction))},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(alertText(prediction))},
			},
		},
		Source: aws.String(n.fromEmail),
	})
	if err != nil {
		return apperrors.NewAlertSendFailedError("ses", err)
	}
	return nil
}
