package dispatch

import (
	"context"
	"fmt"

	"github.com/pitchperfect/waitlist/internal/domain"
)

// Criterion selects which signups a campaign targets.
type Criterion string

// CriterionPending targets every signup that has not been contacted yet.
const CriterionPending Criterion = "pending"

// SignupLister is the read side of the signup store the resolver needs.
type SignupLister interface {
	ListByStatus(ctx context.Context, status domain.SignupStatus) ([]domain.Signup, error)
}

// Resolver turns a criterion into the ordered recipient list for a send.
type Resolver struct {
	signups SignupLister
}

// NewResolver creates a resolver over the signup store.
func NewResolver(signups SignupLister) *Resolver {
	return &Resolver{signups: signups}
}

// Resolve returns the recipients matching c, oldest signup first. It has no
// side effects. Store failures wrap ErrStoreUnavailable.
func (r *Resolver) Resolve(ctx context.Context, c Criterion) ([]domain.Recipient, error) {
	var status domain.SignupStatus
	switch c {
	case CriterionPending:
		status = domain.SignupPending
	default:
		return nil, fmt.Errorf("unknown recipient criterion %q", c)
	}

	signups, err := r.signups.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s recipients: %v", ErrStoreUnavailable, c, err)
	}
	out := make([]domain.Recipient, 0, len(signups))
	for i := range signups {
		out = append(out, signups[i].Recipient())
	}
	return out, nil
}
