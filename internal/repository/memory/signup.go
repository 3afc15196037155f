package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/service/signup"
)

// SignupRepo implements signup.Repository in memory.
type SignupRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.Signup
	byEmail map[string]string
}

// NewSignupRepo creates an empty signup repository.
func NewSignupRepo() *SignupRepo {
	return &SignupRepo{byID: make(map[string]*domain.Signup), byEmail: make(map[string]string)}
}

func (r *SignupRepo) Create(_ context.Context, s *domain.Signup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[s.Email]; taken {
		return signup.ErrDuplicateEmail
	}
	cp := *s
	r.byID[cp.ID] = &cp
	r.byEmail[cp.Email] = cp.ID
	return nil
}

func (r *SignupRepo) Get(_ context.Context, id string) (*domain.Signup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, signup.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// sorted returns copies matching status, oldest first. Caller holds mu.
func (r *SignupRepo) sorted(status domain.SignupStatus) []domain.Signup {
	out := make([]domain.Signup, 0, len(r.byID))
	for _, s := range r.byID {
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *SignupRepo) List(_ context.Context, f signup.ListFilter) ([]domain.Signup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asc := r.sorted(f.Status)
	out := make([]domain.Signup, 0, len(asc))
	for i := len(asc) - 1; i >= 0; i-- {
		out = append(out, asc[i])
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (r *SignupRepo) ListByStatus(_ context.Context, status domain.SignupStatus) ([]domain.Signup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(status), nil
}

func (r *SignupRepo) Update(_ context.Context, id string, u signup.UpdateFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return signup.ErrNotFound
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.Notes != nil {
		s.Notes = *u.Notes
	}
	return nil
}

func (r *SignupRepo) MarkContacted(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok || s.Status != domain.SignupPending {
		return signup.ErrNotFound
	}
	s.Status = domain.SignupContacted
	return nil
}

func (r *SignupRepo) Count(_ context.Context, status domain.SignupStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if status == "" {
		return len(r.byID), nil
	}
	n := 0
	for _, s := range r.byID {
		if s.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *SignupRepo) DailyCounts(_ context.Context, since time.Time) ([]domain.DailyCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DailyCount
	for _, s := range r.sorted("") {
		if s.CreatedAt.Before(since) {
			continue
		}
		day := s.CreatedAt.UTC().Format("2006-01-02")
		if n := len(out); n > 0 && out[n-1].Date == day {
			out[n-1].Count++
			continue
		}
		out = append(out, domain.DailyCount{Date: day, Count: 1})
	}
	return out, nil
}
