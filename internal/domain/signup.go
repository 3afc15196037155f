package domain

import "time"

// SignupStatus tracks whether a waitlist entry has been emailed.
type SignupStatus string

const (
	SignupPending   SignupStatus = "pending"
	SignupContacted SignupStatus = "contacted"
)

// IsValid reports whether s is a known status.
func (s SignupStatus) IsValid() bool {
	return s == SignupPending || s == SignupContacted
}

// Signup is one person on the waitlist. Email is stored trimmed and
// lower-cased and is unique across all signups.
type Signup struct {
	ID        string       `json:"id" db:"id"`
	Email     string       `json:"email" db:"email"`
	Name      string       `json:"name" db:"name"`
	Company   string       `json:"company" db:"company"`
	Role      string       `json:"role" db:"role"`
	Status    SignupStatus `json:"status" db:"status"`
	Notes     string       `json:"notes" db:"notes"`
	CreatedAt time.Time    `json:"signup_date" db:"signup_date"`
}

// Recipient returns the fields a campaign needs to address this signup.
func (s *Signup) Recipient() Recipient {
	return Recipient{SignupID: s.ID, Email: s.Email, Name: s.Name, Company: s.Company, Role: s.Role}
}

// DailyCount is the number of signups on one calendar day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// SignupStats backs the admin dashboard.
type SignupStats struct {
	TotalSignups   int          `json:"total_signups"`
	PendingSignups int          `json:"pending_signups"`
	SentCampaigns  int          `json:"sent_campaigns"`
	RecentSignups  []Signup     `json:"recent_signups"`
	DailySignups   []DailyCount `json:"daily_signups"`
}
