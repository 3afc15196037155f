package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository in memory.
type CampaignRepo struct {
	mu        sync.Mutex
	campaigns map[string]*domain.Campaign
}

// NewCampaignRepo creates an empty campaign repository.
func NewCampaignRepo() *CampaignRepo {
	return &CampaignRepo{campaigns: make(map[string]*domain.Campaign)}
}

func copyCampaign(c *domain.Campaign) *domain.Campaign {
	cp := *c
	if c.SentAt != nil {
		t := *c.SentAt
		cp.SentAt = &t
	}
	return &cp
}

func (r *CampaignRepo) Get(_ context.Context, id string) (*domain.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, campaign.ErrNotFound
	}
	return copyCampaign(c), nil
}

func (r *CampaignRepo) List(_ context.Context, f campaign.ListFilter) ([]domain.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, *copyCampaign(c))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Offset >= len(out) {
		return []domain.Campaign{}, nil
	}
	end := len(out)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return out[f.Offset:end], nil
}

func (r *CampaignRepo) Create(_ context.Context, c *domain.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaigns[c.ID] = copyCampaign(c)
	return nil
}

func (r *CampaignRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campaigns[id]; !ok {
		return campaign.ErrNotFound
	}
	delete(r.campaigns, id)
	return nil
}

// draft returns the stored draft for a transition. Caller holds mu.
func (r *CampaignRepo) draft(id string) (*domain.Campaign, error) {
	c, ok := r.campaigns[id]
	if !ok {
		return nil, campaign.ErrNotFound
	}
	if c.Status != domain.CampaignDraft {
		return nil, campaign.ErrNotDraft
	}
	return c, nil
}

func (r *CampaignRepo) MarkSent(_ context.Context, id string, count int, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.draft(id)
	if err != nil {
		return err
	}
	c.Status = domain.CampaignSent
	c.RecipientsCount = count
	c.SentAt = &sentAt
	return nil
}

func (r *CampaignRepo) MarkFailed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.draft(id)
	if err != nil {
		return err
	}
	c.Status = domain.CampaignFailed
	return nil
}

func (r *CampaignRepo) CountByStatus(_ context.Context, status domain.CampaignStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.campaigns {
		if c.Status == status {
			n++
		}
	}
	return n, nil
}
