package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/service/campaign"
	"github.com/pitchperfect/waitlist/internal/service/signup"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func seedSignup(t *testing.T, r *SignupRepo, id, email string, at time.Time) {
	t.Helper()
	require.NoError(t, r.Create(context.Background(), &domain.Signup{
		ID: id, Email: email, Status: domain.SignupPending, CreatedAt: at,
	}))
}

func TestSignupRepo_ConcurrentDuplicateEmail(t *testing.T) {
	r := NewSignupRepo()
	var ok, dup int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := r.Create(context.Background(), &domain.Signup{
				ID: fmt.Sprintf("s-%d", i), Email: "same@x.com", Status: domain.SignupPending, CreatedAt: base,
			})
			switch err {
			case nil:
				atomic.AddInt32(&ok, 1)
			case signup.ErrDuplicateEmail:
				atomic.AddInt32(&dup, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok)
	assert.Equal(t, int32(19), dup)
	n, _ := r.Count(context.Background(), "")
	assert.Equal(t, 1, n)
}

func TestSignupRepo_Ordering(t *testing.T) {
	r := NewSignupRepo()
	ctx := context.Background()
	seedSignup(t, r, "s-2", "b@x.com", base.Add(time.Hour))
	seedSignup(t, r, "s-1", "a@x.com", base)
	seedSignup(t, r, "s-3", "c@x.com", base.Add(2*time.Hour))

	pending, err := r.ListByStatus(ctx, domain.SignupPending)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []string{"s-1", "s-2", "s-3"}, []string{pending[0].ID, pending[1].ID, pending[2].ID})

	newest, err := r.List(ctx, signup.ListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, "s-3", newest[0].ID)
	assert.Equal(t, "s-2", newest[1].ID)
}

func TestSignupRepo_MarkContactedOnlyFromPending(t *testing.T) {
	r := NewSignupRepo()
	ctx := context.Background()
	seedSignup(t, r, "s-1", "a@x.com", base)

	require.NoError(t, r.MarkContacted(ctx, "s-1"))
	assert.ErrorIs(t, r.MarkContacted(ctx, "s-1"), signup.ErrNotFound)
	assert.ErrorIs(t, r.MarkContacted(ctx, "missing"), signup.ErrNotFound)

	got, err := r.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SignupContacted, got.Status)

	pending, _ := r.Count(ctx, domain.SignupPending)
	assert.Equal(t, 0, pending)
}

func TestSignupRepo_UpdateAndDailyCounts(t *testing.T) {
	r := NewSignupRepo()
	ctx := context.Background()
	seedSignup(t, r, "s-1", "a@x.com", base.AddDate(0, 0, -40))
	seedSignup(t, r, "s-2", "b@x.com", base)
	seedSignup(t, r, "s-3", "c@x.com", base.Add(3*time.Hour))
	seedSignup(t, r, "s-4", "d@x.com", base.AddDate(0, 0, 1))

	notes := "VIP"
	status := domain.SignupContacted
	require.NoError(t, r.Update(ctx, "s-2", signup.UpdateFields{Status: &status, Notes: &notes}))
	assert.ErrorIs(t, r.Update(ctx, "missing", signup.UpdateFields{Notes: &notes}), signup.ErrNotFound)

	got, _ := r.Get(ctx, "s-2")
	assert.Equal(t, "VIP", got.Notes)
	assert.Equal(t, domain.SignupContacted, got.Status)

	counts, err := r.DailyCounts(ctx, base.AddDate(0, 0, -29))
	require.NoError(t, err)
	assert.Equal(t, []domain.DailyCount{{Date: "2026-03-01", Count: 2}, {Date: "2026-03-02", Count: 1}}, counts)
}

func draft(id string, at time.Time) *domain.Campaign {
	return &domain.Campaign{ID: id, Subject: "S", Content: "C", Status: domain.CampaignDraft, CreatedAt: at}
}

func TestCampaignRepo_Transitions(t *testing.T) {
	r := NewCampaignRepo()
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, draft("c-1", base)))
	require.NoError(t, r.Create(ctx, draft("c-2", base)))

	sentAt := base.Add(time.Minute)
	require.NoError(t, r.MarkSent(ctx, "c-1", 3, sentAt))
	assert.ErrorIs(t, r.MarkSent(ctx, "c-1", 5, sentAt), campaign.ErrNotDraft)
	assert.ErrorIs(t, r.MarkFailed(ctx, "c-1"), campaign.ErrNotDraft)
	assert.ErrorIs(t, r.MarkSent(ctx, "nope", 1, sentAt), campaign.ErrNotFound)

	c, err := r.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignSent, c.Status)
	assert.Equal(t, 3, c.RecipientsCount)
	require.NotNil(t, c.SentAt)
	assert.True(t, c.SentAt.Equal(sentAt))

	require.NoError(t, r.MarkFailed(ctx, "c-2"))
	c, _ = r.Get(ctx, "c-2")
	assert.Equal(t, domain.CampaignFailed, c.Status)
	assert.Nil(t, c.SentAt)
	assert.Zero(t, c.RecipientsCount)

	n, _ := r.CountByStatus(ctx, domain.CampaignSent)
	assert.Equal(t, 1, n)
}

func TestCampaignRepo_ListAndDelete(t *testing.T) {
	r := NewCampaignRepo()
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, draft("c-1", base)))
	require.NoError(t, r.Create(ctx, draft("c-2", base.Add(time.Hour))))
	require.NoError(t, r.Create(ctx, draft("c-3", base.Add(2*time.Hour))))
	require.NoError(t, r.MarkSent(ctx, "c-3", 1, base))

	all, err := r.List(ctx, campaign.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c-3", all[0].ID)

	page, _ := r.List(ctx, campaign.ListFilter{Limit: 1, Offset: 1})
	require.Len(t, page, 1)
	assert.Equal(t, "c-2", page[0].ID)

	drafts, _ := r.List(ctx, campaign.ListFilter{Status: domain.CampaignDraft})
	assert.Len(t, drafts, 2)

	require.NoError(t, r.Delete(ctx, "c-3"))
	assert.ErrorIs(t, r.Delete(ctx, "c-3"), campaign.ErrNotFound)
	_, err = r.Get(ctx, "c-3")
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCampaignRepo_ReturnsCopies(t *testing.T) {
	r := NewCampaignRepo()
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, draft("c-1", base)))

	c, _ := r.Get(ctx, "c-1")
	c.Status = domain.CampaignSent

	again, _ := r.Get(ctx, "c-1")
	assert.Equal(t, domain.CampaignDraft, again.Status)
}
