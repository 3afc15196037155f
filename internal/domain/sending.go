package domain

import "fmt"

// Recipient is a resolved campaign target. Missing profile fields are
// empty strings.
type Recipient struct {
	SignupID string `json:"signup_id,omitempty"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Company  string `json:"company"`
	Role     string `json:"role"`
}

// EmailMessage is the fully-rendered message handed to a transport.
type EmailMessage struct {
	To          string `json:"to"`
	FromName    string `json:"from_name"`
	FromEmail   string `json:"from_email"`
	Subject     string `json:"subject"`
	HTMLContent string `json:"html_content"`
	TextContent string `json:"text_content"`
}

// SendResult is the outcome of one delivery attempt.
type SendResult struct {
	Recipient Recipient `json:"recipient"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// DispatchStatus summarizes a dispatch run.
type DispatchStatus string

const (
	DispatchSent          DispatchStatus = "sent"
	DispatchPartiallySent DispatchStatus = "partially_sent"
	DispatchFailed        DispatchStatus = "failed"
	DispatchNothingToSend DispatchStatus = "nothing_to_send"
)

// DispatchOutcome is the transient result of one campaign send. Results
// keep the order in which recipients were resolved. It is never persisted.
type DispatchOutcome struct {
	CampaignID string       `json:"campaign_id,omitempty"`
	Results    []SendResult `json:"results"`
	// TransportError is set when the session could not be opened.
	TransportError string `json:"transport_error,omitempty"`
	// Warnings lists reconciliation writes that failed after sending.
	Warnings []string `json:"warnings,omitempty"`
}

// Attempted is the number of recipients resolved for the send.
func (o *DispatchOutcome) Attempted() int { return len(o.Results) }

// Reached is the number of recipients the transport accepted.
func (o *DispatchOutcome) Reached() int {
	n := 0
	for _, r := range o.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// ReachedRecipients returns the accepted recipients in send order.
func (o *DispatchOutcome) ReachedRecipients() []Recipient {
	var out []Recipient
	for _, r := range o.Results {
		if r.Success {
			out = append(out, r.Recipient)
		}
	}
	return out
}

// Status derives the dispatch status from the per-recipient results.
func (o *DispatchOutcome) Status() DispatchStatus {
	total, sent := o.Attempted(), o.Reached()
	switch {
	case total == 0:
		return DispatchNothingToSend
	case sent == 0:
		return DispatchFailed
	case sent < total:
		return DispatchPartiallySent
	default:
		return DispatchSent
	}
}

// Summary is the operator-facing message for the outcome.
func (o *DispatchOutcome) Summary() string {
	total, sent := o.Attempted(), o.Reached()
	switch o.Status() {
	case DispatchNothingToSend:
		return "No pending users to send email to"
	case DispatchFailed:
		return fmt.Sprintf("No emails were sent (0 of %d recipients reached)", total)
	case DispatchPartiallySent:
		return fmt.Sprintf("Campaign sent to %d of %d recipients", sent, total)
	default:
		return fmt.Sprintf("Campaign sent to %d recipients", sent)
	}
}
