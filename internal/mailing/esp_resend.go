package mailing

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/resend/resend-go/v3"

	"github.com/pitchperfect/waitlist/internal/config"
	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/service/sending"
)

// ResendTransport delivers through the Resend HTTP API.
type ResendTransport struct {
	apiKey     string
	httpClient *http.Client
}

// NewResendTransport creates a Resend transport whose API calls are bounded
// by timeout.
func NewResendTransport(cfg config.ResendConfig, timeout time.Duration) *ResendTransport {
	return &ResendTransport{apiKey: cfg.APIKey, httpClient: &http.Client{Timeout: timeout}}
}

// Mode implements sending.Transport.
func (t *ResendTransport) Mode() string { return sending.ModeResend }

// Open implements sending.Transport. The API is stateless, so the session
// only carries a configured client.
func (t *ResendTransport) Open(_ context.Context) (sending.Session, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("%w: resend api key missing", sending.ErrTransportUnavailable)
	}
	return &resendSession{client: resend.NewCustomClient(t.httpClient, t.apiKey)}, nil
}

type resendSession struct {
	client *resend.Client
}

func (s *resendSession) Send(ctx context.Context, msg *domain.EmailMessage) error {
	req := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTMLContent,
		Text:    msg.TextContent,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("%w: resend: %v", sending.ErrRecipientRejected, err)
	}
	return nil
}

func (s *resendSession) Close() error { return nil }
