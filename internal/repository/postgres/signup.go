package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pitchperfect/waitlist/internal/domain"
	"github.com/pitchperfect/waitlist/internal/service/signup"
)

const uniqueViolation = "23505"

// SignupRepo implements signup.Repository against PostgreSQL.
type SignupRepo struct{ db *sql.DB }

// NewSignupRepo creates a Postgres-backed signup repository.
func NewSignupRepo(db *sql.DB) *SignupRepo { return &SignupRepo{db: db} }

const signupColumns = `id, email, COALESCE(name,''), COALESCE(company,''), COALESCE(role,''),
		       status, COALESCE(notes,''), signup_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignup(row rowScanner) (*domain.Signup, error) {
	s := &domain.Signup{}
	err := row.Scan(&s.ID, &s.Email, &s.Name, &s.Company, &s.Role, &s.Status, &s.Notes, &s.CreatedAt)
	return s, err
}

func (r *SignupRepo) Create(ctx context.Context, s *domain.Signup) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO waitlist_users (id, email, name, company, role, status, notes, signup_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.Email, s.Name, s.Company, s.Role, s.Status, s.Notes, s.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return signup.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("create signup: %w", err)
	}
	return nil
}

func (r *SignupRepo) Get(ctx context.Context, id string) (*domain.Signup, error) {
	s, err := scanSignup(r.db.QueryRowContext(ctx, `
		SELECT `+signupColumns+`
		FROM waitlist_users
		WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, signup.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get signup: %w", err)
	}
	return s, nil
}

func (r *SignupRepo) query(ctx context.Context, q string, args ...any) ([]domain.Signup, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list signups: %w", err)
	}
	defer rows.Close()

	out := []domain.Signup{}
	for rows.Next() {
		s, err := scanSignup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signup: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SignupRepo) List(ctx context.Context, f signup.ListFilter) ([]domain.Signup, error) {
	q := `SELECT ` + signupColumns + ` FROM waitlist_users`
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	q += " ORDER BY signup_date DESC, id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return r.query(ctx, q, args...)
}

func (r *SignupRepo) ListByStatus(ctx context.Context, status domain.SignupStatus) ([]domain.Signup, error) {
	return r.query(ctx, `
		SELECT `+signupColumns+`
		FROM waitlist_users
		WHERE status = $1
		ORDER BY signup_date ASC, id ASC
	`, status)
}

func (r *SignupRepo) Update(ctx context.Context, id string, u signup.UpdateFields) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE waitlist_users
		SET status = COALESCE($2, status), notes = COALESCE($3, notes)
		WHERE id = $1
	`, id, nullStatus(u.Status), nullString(u.Notes))
	if err != nil {
		return fmt.Errorf("update signup: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return signup.ErrNotFound
	}
	return nil
}

func (r *SignupRepo) MarkContacted(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE waitlist_users SET status = $2
		WHERE id = $1 AND status = $3
	`, id, domain.SignupContacted, domain.SignupPending)
	if err != nil {
		return fmt.Errorf("mark signup contacted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return signup.ErrNotFound
	}
	return nil
}

func (r *SignupRepo) Count(ctx context.Context, status domain.SignupStatus) (int, error) {
	var n int
	var err error
	if status == "" {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist_users`).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist_users WHERE status = $1`, status).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count signups: %w", err)
	}
	return n, nil
}

func (r *SignupRepo) DailyCounts(ctx context.Context, since time.Time) ([]domain.DailyCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(signup_date AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM waitlist_users
		WHERE signup_date >= $1
		GROUP BY day
		ORDER BY day
	`, since)
	if err != nil {
		return nil, fmt.Errorf("daily signups: %w", err)
	}
	defer rows.Close()

	var out []domain.DailyCount
	for rows.Next() {
		var c domain.DailyCount
		if err := rows.Scan(&c.Date, &c.Count); err != nil {
			return nil, fmt.Errorf("scan daily signups: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullStatus(s *domain.SignupStatus) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*s), Valid: true}
}
