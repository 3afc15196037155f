package campaign

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/pkg/logger"
)

// Service implements campaign business logic. All public methods are safe
// for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a campaign service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// DraftInput holds the fields for composing a campaign.
type DraftInput struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// NewDraft validates input and builds an unsaved draft authored by author.
func NewDraft(input DraftInput, author string, now time.Time) (*domain.Campaign, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, ErrSubjectRequired
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrContentRequired
	}
	return &domain.Campaign{
		ID:        uuid.New().String(),
		Subject:   subject,
		Content:   input.Content,
		Status:    domain.CampaignDraft,
		CreatedBy: author,
		CreatedAt: now.UTC(),
	}, nil
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, id)
}

// List returns campaigns matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Campaign, error) {
	return s.repo.List(ctx, f)
}

// SaveDraft validates and persists a new campaign in draft status.
func (s *Service) SaveDraft(ctx context.Context, input DraftInput, author string) (*domain.Campaign, error) {
	c, err := NewDraft(input, author, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	logger.Info("campaign draft saved", "campaign_id", c.ID, "created_by", author)
	return c, nil
}

// Delete removes a campaign regardless of status.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("campaign deleted", "campaign_id", id)
	return nil
}

// SentCount returns the number of campaigns that were sent.
func (s *Service) SentCount(ctx context.Context) (int, error) {
	return s.repo.CountByStatus(ctx, domain.CampaignSent)
}
