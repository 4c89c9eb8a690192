// Package ses delivers mail through Amazon SES v2.
package ses

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/campaign-mailer/internal/domain"
	"github.com/ignite/campaign-mailer/internal/pkg/logger"
	"github.com/ignite/campaign-mailer/internal/service/sending"
)

const charset = "UTF-8"

// API is the subset of the SES v2 client used for sending.
type API interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Client sends email through SES on behalf of one owner. It is safe for
// concurrent use.
type Client struct {
	api     API
	from    string
	replyTo string
}

// NewClient wraps an SES API with the sender identity from settings.
func NewClient(api API, settings domain.TransportSettings) *Client {
	return &Client{
		api:     api,
		from:    FormatSender(settings.FromName, settings.FromEmail),
		replyTo: settings.ReplyToEmail,
	}
}

// FormatSender renders the From header: `"Name" <email>` when name is set,
// otherwise the bare address.
func FormatSender(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%q <%s>", name, email)
}

// Input builds the SendEmail request for msg.
func (c *Client) Input(msg *domain.EmailMessage) *sesv2.SendEmailInput {
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(c.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String(charset)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String(charset)},
				},
			},
		},
	}
	if c.replyTo != "" {
		in.ReplyToAddresses = []string{c.replyTo}
	}
	return in
}

// Send delivers msg and returns the SES message id. Failures are returned as
// classified *sending.TransportError values.
func (c *Client) Send(ctx context.Context, msg *domain.EmailMessage) (string, error) {
	out, err := c.api.SendEmail(ctx, c.Input(msg))
	if err != nil {
		return "", sending.Classify(err)
	}

	messageID := aws.ToString(out.MessageId)
	logger.Debug("ses message accepted", "to", msg.To, "message_id", messageID)
	return messageID, nil
}

// Factory builds SES clients from owner settings.
type Factory struct {
	// BaseEndpoint overrides the SES endpoint, e.g. for a local mock.
	BaseEndpoint string
}

// New creates a Client using the owner's static credentials and region.
func (f Factory) New(ctx context.Context, s domain.TransportSettings) (sending.Transport, error) {
	if s.Region == "" || s.AccessKeyID == "" || s.SecretAccessKey == "" {
		return nil, errors.New("ses: region and credentials are required")
	}

	creds := credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, "")
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(s.Region),
		config.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	api := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if f.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(f.BaseEndpoint)
		}
	})
	return NewClient(api, s), nil
}
