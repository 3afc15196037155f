package mailing

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/pitchperfect/waitlist/internal/config"
	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/service/sending"
)

// sesAPI is the subset of the SES v2 client used for delivery.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESTransport delivers through AWS SES v2, one SendEmail call per message.
type SESTransport struct {
	cfg       config.SESConfig
	timeout   time.Duration
	newClient func(ctx context.Context) (sesAPI, error)
}

// NewSESTransport creates an SES transport using static credentials.
// timeout bounds each API call.
func NewSESTransport(cfg config.SESConfig, timeout time.Duration) *SESTransport {
	t := &SESTransport{cfg: cfg, timeout: timeout}
	t.newClient = t.defaultClient
	return t
}

func (t *SESTransport) defaultClient(ctx context.Context) (sesAPI, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, t.loadOptions()...)
	if err != nil {
		return nil, err
	}
	return sesv2.NewFromConfig(awsCfg), nil
}

func (t *SESTransport) loadOptions() []func(*awsconfig.LoadOptions) error {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(t.cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(t.cfg.AccessKey, t.cfg.SecretKey, "")),
	}
	if t.timeout > 0 {
		opts = append(opts, awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(t.timeout)))
	}
	return opts
}

// Mode implements sending.Transport.
func (t *SESTransport) Mode() string { return sending.ModeSES }

// Open implements sending.Transport.
func (t *SESTransport) Open(ctx context.Context) (sending.Session, error) {
	client, err := t.newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: ses %s: %v", sending.ErrTransportUnavailable, t.cfg.Region, err)
	}
	return &sesSession{client: client}, nil
}

type sesSession struct {
	client sesAPI
}

func (s *sesSession) Send(ctx context.Context, msg *domain.EmailMessage) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTMLContent), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(msg.TextContent), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("%w: ses: %v", sending.ErrRecipientRejected, err)
	}
	return nil
}

func (s *sesSession) Close() error { return nil }
