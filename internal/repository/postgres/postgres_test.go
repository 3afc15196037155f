package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/service/campaign"
	"github.com/pitchperfect/waitlist/internal/service/signup"
)

var ts = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var signupCols = []string{"id", "email", "name", "company", "role", "status", "notes", "signup_date"}

func TestSignupRepo_CreateDuplicate(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewSignupRepo(db)

	s := &domain.Signup{ID: "s-1", Email: "a@x.com", Status: domain.SignupPending, CreatedAt: ts}
	mock.ExpectExec("INSERT INTO waitlist_users").
		WithArgs("s-1", "a@x.com", "", "", "", "pending", "", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO waitlist_users").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	require.NoError(t, repo.Create(context.Background(), s))
	assert.ErrorIs(t, repo.Create(context.Background(), s), signup.ErrDuplicateEmail)
}

func TestSignupRepo_GetNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewSignupRepo(db)

	mock.ExpectQuery("FROM waitlist_users").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, signup.ErrNotFound)
}

func TestSignupRepo_ListByStatus(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewSignupRepo(db)

	mock.ExpectQuery(`FROM waitlist_users\s+WHERE status = \$1\s+ORDER BY signup_date ASC`).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows(signupCols).
			AddRow("s-1", "a@x.com", "Ann", "Acme", "CTO", "pending", "", ts).
			AddRow("s-2", "b@x.com", "", "", "", "pending", "", ts.Add(time.Hour)))

	got, err := repo.ListByStatus(context.Background(), domain.SignupPending)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ann", got[0].Name)
	assert.Equal(t, domain.Recipient{SignupID: "s-1", Email: "a@x.com", Name: "Ann", Company: "Acme", Role: "CTO"}, got[0].Recipient())
	assert.Equal(t, "b@x.com", got[1].Email)
}

func TestSignupRepo_ListWithLimit(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewSignupRepo(db)

	mock.ExpectQuery(`ORDER BY signup_date DESC, id DESC LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(signupCols))

	got, err := repo.List(context.Background(), signup.ListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSignupRepo_Update(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewSignupRepo(db)

	notes := "call back"
	mock.ExpectExec("UPDATE waitlist_users").
		WithArgs("s-1", nil, "call back").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE waitlist_users").
		WithArgs("missing", nil, "call back").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Update(context.Background(), "s-1", signup.UpdateFields{Notes: &notes}))
	assert.ErrorIs(t, repo.Update(context.Background(), "missing", signup.UpdateFields{Notes: &notes}), signup.ErrNotFound)
}

func TestSignupRepo_MarkContacted(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewSignupRepo(db)

	mock.ExpectExec("UPDATE waitlist_users SET status").
		WithArgs("s-1", "contacted", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE waitlist_users SET status").
		WithArgs("s-1", "contacted", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkContacted(context.Background(), "s-1"))
	assert.ErrorIs(t, repo.MarkContacted(context.Background(), "s-1"), signup.ErrNotFound)
}

func TestSignupRepo_CountAndDaily(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewSignupRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM waitlist_users$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM waitlist_users WHERE status`).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("GROUP BY day").
		WithArgs(ts).
		WillReturnRows(sqlmock.NewRows([]string{"day", "count"}).AddRow("2026-03-01", 2).AddRow("2026-03-03", 1))

	total, err := repo.Count(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 7, total)

	pending, err := repo.Count(context.Background(), domain.SignupPending)
	require.NoError(t, err)
	assert.Equal(t, 3, pending)

	daily, err := repo.DailyCounts(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, []domain.DailyCount{{Date: "2026-03-01", Count: 2}, {Date: "2026-03-03", Count: 1}}, daily)
}

var campaignCols = []string{"id", "subject", "content", "status", "recipients_count", "created_by", "created_at", "sent_at"}

func TestCampaignRepo_Get(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCampaignRepo(db)

	sentAt := ts.Add(time.Hour)
	mock.ExpectQuery("FROM email_campaigns").WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(campaignCols).AddRow("c-1", "Hi", "Hello {{name}}", "sent", 2, "ops@x.com", ts, sentAt))
	mock.ExpectQuery("FROM email_campaigns").WithArgs("c-2").
		WillReturnRows(sqlmock.NewRows(campaignCols).AddRow("c-2", "Hi", "Body", "draft", 0, "", ts, nil))
	mock.ExpectQuery("FROM email_campaigns").WithArgs("c-3").WillReturnError(sql.ErrNoRows)

	c, err := repo.Get(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignSent, c.Status)
	assert.Equal(t, 2, c.RecipientsCount)
	require.NotNil(t, c.SentAt)
	assert.True(t, c.SentAt.Equal(sentAt))

	c, err = repo.Get(context.Background(), "c-2")
	require.NoError(t, err)
	assert.Nil(t, c.SentAt)

	_, err = repo.Get(context.Background(), "c-3")
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCampaignRepo_List(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCampaignRepo(db)

	mock.ExpectQuery(`WHERE status = \$1 ORDER BY created_at DESC, id DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("draft", 100, 0).
		WillReturnRows(sqlmock.NewRows(campaignCols).AddRow("c-2", "Hi", "Body", "draft", 0, "", ts, nil))

	got, err := repo.List(context.Background(), campaign.ListFilter{Status: domain.CampaignDraft})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c-2", got[0].ID)
}

func TestCampaignRepo_CreateAndDelete(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCampaignRepo(db)

	c := &domain.Campaign{ID: "c-1", Subject: "Hi", Content: "Body", Status: domain.CampaignDraft, CreatedBy: "ops@x.com", CreatedAt: ts}
	mock.ExpectExec("INSERT INTO email_campaigns").
		WithArgs("c-1", "Hi", "Body", "draft", 0, "ops@x.com", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM email_campaigns").WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM email_campaigns").WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Create(context.Background(), c))
	require.NoError(t, repo.Delete(context.Background(), "c-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "c-1"), campaign.ErrNotFound)
}

func TestCampaignRepo_MarkSent(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCampaignRepo(db)

	mock.ExpectExec("UPDATE email_campaigns").
		WithArgs("c-1", "sent", 2, ts, "draft").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkSent(context.Background(), "c-1", 2, ts))
}

func TestCampaignRepo_TransitionRejected(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCampaignRepo(db)

	mock.ExpectExec("UPDATE email_campaigns").
		WithArgs("c-1", "sent", 2, ts, "draft").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM email_campaigns").WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("sent"))

	mock.ExpectExec("UPDATE email_campaigns SET status").
		WithArgs("c-9", "failed", "draft").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM email_campaigns").WithArgs("c-9").
		WillReturnError(sql.ErrNoRows)

	assert.ErrorIs(t, repo.MarkSent(context.Background(), "c-1", 2, ts), campaign.ErrNotDraft)
	assert.ErrorIs(t, repo.MarkFailed(context.Background(), "c-9"), campaign.ErrNotFound)
}

func TestCampaignRepo_CountByStatus(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewCampaignRepo(db)

	mock.ExpectQuery("SELECT COUNT").WithArgs("sent").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountByStatus(context.Background(), domain.CampaignSent)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
