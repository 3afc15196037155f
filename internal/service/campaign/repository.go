package campaign

import (
	"context"
	"time"

	"github.com/pitchperfect/waitlist/internal/domain"
)

// Repository defines the data access contract for campaigns.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Campaign, error)

	// List returns campaigns matching the filter, ordered by created_at DESC.
	List(ctx context.Context, f ListFilter) ([]domain.Campaign, error)

	// Create inserts a new campaign.
	Create(ctx context.Context, c *domain.Campaign) error

	// Delete removes a campaign in any status.
	Delete(ctx context.Context, id string) error

	// MarkSent moves a draft to sent, recording count and sentAt in the same
	// statement. Returns ErrNotDraft if the campaign already left draft.
	MarkSent(ctx context.Context, id string, count int, sentAt time.Time) error

	// MarkFailed moves a draft to failed. Returns ErrNotDraft if the
	// campaign already left draft.
	MarkFailed(ctx context.Context, id string) error

	// CountByStatus returns the number of campaigns in status.
	CountByStatus(ctx context.Context, status domain.CampaignStatus) (int, error)
}

// ListFilter controls pagination and filtering for campaign lists.
type ListFilter struct {
	Status domain.CampaignStatus
	Limit  int
	Offset int
}
