package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignColumns = `id, subject, content, status, recipients_count,
		       COALESCE(created_by,''), created_at, sent_at`

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var sentAt sql.NullTime
	if err := row.Scan(&c.ID, &c.Subject, &c.Content, &c.Status, &c.RecipientsCount,
		&c.CreatedBy, &c.CreatedAt, &sentAt); err != nil {
		return nil, err
	}
	if sentAt.Valid {
		t := sentAt.Time
		c.SentAt = &t
	}
	return c, nil
}

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	c, err := scanCampaign(r.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM email_campaigns
		WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) List(ctx context.Context, f campaign.ListFilter) ([]domain.Campaign, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	q := `SELECT ` + campaignColumns + ` FROM email_campaigns`
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	args = append(args, limit, f.Offset)
	q += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	out := []domain.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_campaigns
			(id, subject, content, status, recipients_count, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.Subject, c.Content, c.Status, c.RecipientsCount, c.CreatedBy, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM email_campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) MarkSent(ctx context.Context, id string, count int, sentAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_campaigns
		SET status = $2, recipients_count = $3, sent_at = $4
		WHERE id = $1 AND status = $5
	`, id, domain.CampaignSent, count, sentAt, domain.CampaignDraft)
	if err != nil {
		return fmt.Errorf("mark campaign sent: %w", err)
	}
	return r.checkTransition(ctx, res, id)
}

func (r *CampaignRepo) MarkFailed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_campaigns SET status = $2
		WHERE id = $1 AND status = $3
	`, id, domain.CampaignFailed, domain.CampaignDraft)
	if err != nil {
		return fmt.Errorf("mark campaign failed: %w", err)
	}
	return r.checkTransition(ctx, res, id)
}

// checkTransition tells a missing campaign apart from one that already
// left draft when a conditional update touched no rows.
func (r *CampaignRepo) checkTransition(ctx context.Context, res sql.Result, id string) error {
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM email_campaigns WHERE id = $1`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return campaign.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("campaign status: %w", err)
	}
	return campaign.ErrNotDraft
}

func (r *CampaignRepo) CountByStatus(ctx context.Context, status domain.CampaignStatus) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_campaigns WHERE status = $1`, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("count campaigns: %w", err)
	}
	return n, nil
}
