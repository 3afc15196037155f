package mailing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchperfect/waitlist/internal/domain"
)

func newTestLayout(t *testing.T) *Layout {
	t.Helper()
	l, err := NewLayout("PitchPerfectAI", From{Email: "noreply@example.com", Name: "Team"})
	require.NoError(t, err)
	return l
}

func TestLayoutRender(t *testing.T) {
	l := newTestLayout(t)

	htmlBody, textBody, err := l.Render("Hello Ann,\nWelcome <aboard> & more", "ann@x.com")
	require.NoError(t, err)

	assert.Contains(t, htmlBody, "Hello Ann,<br>\nWelcome &lt;aboard&gt; &amp; more")
	assert.Contains(t, htmlBody, "This email was sent to ann@x.com because you signed up for the PitchPerfectAI waitlist.")
	assert.Contains(t, htmlBody, `please reply with "UNSUBSCRIBE"`)

	assert.Contains(t, textBody, "Hello Ann,\nWelcome <aboard> & more")
	assert.Contains(t, textBody, "This email was sent to ann@x.com because you signed up for the PitchPerfectAI waitlist.")
	assert.NotContains(t, textBody, "<br>")
}

func TestLayoutCompose(t *testing.T) {
	l := newTestLayout(t)
	r := domain.Recipient{Email: "ann@x.com", Name: "Ann", Company: "Acme"}

	msg, err := l.Compose("News for {{company}}", "Hi {{name}} {{unknown}}", r)
	require.NoError(t, err)

	assert.Equal(t, "ann@x.com", msg.To)
	assert.Equal(t, "noreply@example.com", msg.FromEmail)
	assert.Equal(t, "Team", msg.FromName)
	assert.Equal(t, "News for Acme", msg.Subject)
	assert.Contains(t, msg.TextContent, "Hi Ann {{unknown}}")
	assert.Contains(t, msg.HTMLContent, "Hi Ann {{unknown}}")
	assert.Equal(t, "PitchPerfectAI", l.Product())
}

func TestLayoutDoesNotEvaluateContent(t *testing.T) {
	l := newTestLayout(t)

	_, textBody, err := l.Render("{% if true %}x{% endif %} {{ product }}", "a@x.com")
	require.NoError(t, err)
	assert.Contains(t, textBody, "{% if true %}x{% endif %} {{ product }}")
}
