package mailing

import (
	"fmt"
	"html"
	"strings"

	"github.com/osteele/liquid"

	"github.com/pitchperfect/waitlist/internal/domain"
)

const htmlLayout = `<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
{{ body | nl2br }}
<hr style="margin: 30px 0; border: none; border-top: 1px solid #eee;">
<p style="font-size: 12px; color: #666;">This email was sent to {{ email | escape }} because you signed up for the {{ product | escape }} waitlist.<br>
If you no longer wish to receive these emails, please reply with "UNSUBSCRIBE".</p>
</div>
</body>
</html>`

const textLayout = `{{ body }}

---
This email was sent to {{ email }} because you signed up for the {{ product }} waitlist.
If you no longer wish to receive these emails, please reply with "UNSUBSCRIBE".`

// From is the envelope sender applied to every composed message.
type From struct {
	Email string
	Name  string
}

// Layout wraps personalized campaign content in the HTML and plain-text
// message bodies. Parsed templates are reused across goroutines.
type Layout struct {
	product string
	from    From
	html    *liquid.Template
	text    *liquid.Template
}

// NewLayout parses the message layouts for the given product name.
func NewLayout(product string, from From) (*Layout, error) {
	engine := liquid.NewEngine()

	// Operator content is plain text: escape it, then keep its line breaks.
	engine.RegisterFilter("nl2br", func(s string) string {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>\n")
	})

	htmlTpl, err := engine.ParseString(htmlLayout)
	if err != nil {
		return nil, fmt.Errorf("parse html layout: %w", err)
	}
	textTpl, err := engine.ParseString(textLayout)
	if err != nil {
		return nil, fmt.Errorf("parse text layout: %w", err)
	}
	return &Layout{product: product, from: from, html: htmlTpl, text: textTpl}, nil
}

// Render wraps body for the given recipient address.
func (l *Layout) Render(body, email string) (htmlBody, textBody string, err error) {
	bindings := liquid.Bindings{"body": body, "email": email, "product": l.product}
	htmlBody, err = l.html.RenderString(bindings)
	if err != nil {
		return "", "", fmt.Errorf("render html layout: %w", err)
	}
	textBody, err = l.text.RenderString(bindings)
	if err != nil {
		return "", "", fmt.Errorf("render text layout: %w", err)
	}
	return htmlBody, textBody, nil
}

// Compose personalizes subject and content for r and renders the message.
func (l *Layout) Compose(subject, content string, r domain.Recipient) (*domain.EmailMessage, error) {
	htmlBody, textBody, err := l.Render(Personalize(content, r), r.Email)
	if err != nil {
		return nil, err
	}
	return &domain.EmailMessage{
		To:          r.Email,
		FromEmail:   l.from.Email,
		FromName:    l.from.Name,
		Subject:     Personalize(subject, r),
		HTMLContent: htmlBody,
		TextContent: textBody,
	}, nil
}

// Product is the product name used in footers and test emails.
func (l *Layout) Product() string { return l.product }
