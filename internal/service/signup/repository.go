package signup

import (
	"context"
	"time"

	"github.com/pitchperfect/waitlist/internal/domain"
)

// Repository defines the data access contract for signups.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a signup. The email uniqueness check and the insert are
	// atomic; a taken email returns ErrDuplicateEmail.
	Create(ctx context.Context, s *domain.Signup) error

	// Get returns a single signup. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Signup, error)

	// List returns signups ordered by signup date, newest first.
	List(ctx context.Context, f ListFilter) ([]domain.Signup, error)

	// ListByStatus returns every signup with the given status, oldest first.
	ListByStatus(ctx context.Context, status domain.SignupStatus) ([]domain.Signup, error)

	// Update applies the non-nil fields in a single statement.
	Update(ctx context.Context, id string, u UpdateFields) error

	// MarkContacted moves a pending signup to contacted. A signup that is
	// missing or no longer pending returns ErrNotFound.
	MarkContacted(ctx context.Context, id string) error

	// Count returns the number of signups with status, or all signups when
	// status is empty.
	Count(ctx context.Context, status domain.SignupStatus) (int, error)

	// DailyCounts returns signups per UTC day since the given time, oldest
	// day first. Days without signups are omitted.
	DailyCounts(ctx context.Context, since time.Time) ([]domain.DailyCount, error)
}

// ListFilter controls filtering for signup lists.
type ListFilter struct {
	Status domain.SignupStatus
	Limit  int
}

// UpdateFields holds the admin-editable fields. Nil fields are not applied.
type UpdateFields struct {
	Status *domain.SignupStatus
	Notes  *string
}
