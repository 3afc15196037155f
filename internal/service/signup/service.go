package signup

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/pkg/logger"
)

const (
	recentSignups = 10
	statsDays     = 30
)

// Service implements waitlist business logic. All public methods are safe
// for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a signup service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// JoinInput is the public waitlist form.
type JoinInput struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Role    string `json:"role"`
}

// UpdateInput holds the admin-editable fields.
type UpdateInput struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare address.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// Join adds a pending signup. A second signup for the same address returns
// ErrDuplicateEmail and leaves the first untouched.
func (s *Service) Join(ctx context.Context, in JoinInput) (*domain.Signup, error) {
	email := NormalizeEmail(in.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	su := &domain.Signup{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      strings.TrimSpace(in.Name),
		Company:   strings.TrimSpace(in.Company),
		Role:      strings.TrimSpace(in.Role),
		Status:    domain.SignupPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, su); err != nil {
		return nil, err
	}
	logger.Info("waitlist signup", "email", su.Email, "signup_id", su.ID)
	return su, nil
}

// Get returns a single signup.
func (s *Service) Get(ctx context.Context, id string) (*domain.Signup, error) {
	return s.repo.Get(ctx, id)
}

// List returns signups newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Signup, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, f)
}

// Update changes a signup's status and/or notes and returns the result.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.Signup, error) {
	var u UpdateFields
	if in.Status != nil {
		st := domain.SignupStatus(strings.ToLower(strings.TrimSpace(*in.Status)))
		if !st.IsValid() {
			return nil, ErrInvalidStatus
		}
		u.Status = &st
	}
	u.Notes = in.Notes

	if u.Status != nil || u.Notes != nil {
		if err := s.repo.Update(ctx, id, u); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, id)
}

// Stats gathers the signup side of the admin dashboard. DailySignups covers
// the last 30 UTC days including today, with zero-count days filled in.
func (s *Service) Stats(ctx context.Context) (*domain.SignupStats, error) {
	total, err := s.repo.Count(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("count signups: %w", err)
	}
	pending, err := s.repo.Count(ctx, domain.SignupPending)
	if err != nil {
		return nil, fmt.Errorf("count pending signups: %w", err)
	}
	recent, err := s.repo.List(ctx, ListFilter{Limit: recentSignups})
	if err != nil {
		return nil, fmt.Errorf("recent signups: %w", err)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(statsDays - 1))
	counts, err := s.repo.DailyCounts(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("daily signups: %w", err)
	}
	byDay := make(map[string]int, len(counts))
	for _, c := range counts {
		byDay[c.Date] = c.Count
	}
	daily := make([]domain.DailyCount, 0, statsDays)
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		daily = append(daily, domain.DailyCount{Date: key, Count: byDay[key]})
	}

	return &domain.SignupStats{
		TotalSignups:   total,
		PendingSignups: pending,
		RecentSignups:  recent,
		DailySignups:   daily,
	}, nil
}

// ExportCSV writes every signup, newest first, as CSV.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	signups, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return fmt.Errorf("list signups: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Email", "Name", "Company", "Role", "Signup Date", "Status", "Notes"}); err != nil {
		return err
	}
	for _, su := range signups {
		row := []string{
			su.Email, su.Name, su.Company, su.Role,
			su.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			string(su.Status), su.Notes,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
