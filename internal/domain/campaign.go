package domain

import (
	"time"
)

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft  CampaignStatus = "draft"
	CampaignSent   CampaignStatus = "sent"
	CampaignFailed CampaignStatus = "failed"
)

// IsValid reports whether s is a known status.
func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignDraft, CampaignSent, CampaignFailed:
		return true
	}
	return false
}

// Campaign is an operator-authored message sent to every pending signup.
//
// Only drafts transition. A draft has no SentAt and a zero RecipientsCount;
// both are set together, once, when the campaign moves to sent.
type Campaign struct {
	ID              string         `json:"id" db:"id"`
	Subject         string         `json:"subject" db:"subject"`
	Content         string         `json:"content" db:"content"`
	Status          CampaignStatus `json:"status" db:"status"`
	RecipientsCount int            `json:"recipients_count" db:"recipients_count"`
	CreatedBy       string         `json:"created_by" db:"created_by"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	SentAt          *time.Time     `json:"sent_at" db:"sent_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignSent || c.Status == CampaignFailed
}
