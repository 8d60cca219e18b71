package templates

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("templates: not found")
	ErrInvalidArgument = errors.New("templates: invalid argument")
)

// Repository is the persistence boundary for SMS templates.
type Repository interface {
	Create(ctx context.Context, t Template) (Template, error)
	GetByID(ctx context.Context, id string) (Template, error)
	// ListForUser returns the user's own templates plus globals.
	ListForUser(ctx context.Context, userID string) ([]Template, error)
}

type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

func validate(t Template) error {
	if t.Name == "" || t.Content == "" {
		return ErrInvalidArgument
	}
	if len(t.Content) > MaxContentLength {
		return ErrInvalidArgument
	}
	if !t.IsGlobal && t.UserID == "" {
		return ErrInvalidArgument
	}
	return nil
}

func (r *PostgresRepo) Create(ctx context.Context, t Template) (Template, error) {
	if err := validate(t); err != nil {
		return Template{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := r.clock().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	const q = `
INSERT INTO sms_templates (id, user_id, name, content, tags, is_global, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	if _, err := r.db.ExecContext(ctx, q,
		t.ID, nullable(t.UserID), t.Name, t.Content, strings.Join(t.Tags, ","), t.IsGlobal, t.CreatedAt, t.UpdatedAt,
	); err != nil {
		return Template{}, err
	}
	return t, nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Template, error) {
	if id == "" {
		return Template{}, ErrInvalidArgument
	}
	const q = `
SELECT id, COALESCE(user_id, ''), name, content, tags, is_global, created_at, updated_at
FROM sms_templates
WHERE id = $1
`
	var t Template
	var tags string
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.UserID, &t.Name, &t.Content, &tags, &t.IsGlobal, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Template{}, ErrNotFound
		}
		return Template{}, err
	}
	t.Tags = splitTags(tags)
	return t, nil
}

func (r *PostgresRepo) ListForUser(ctx context.Context, userID string) ([]Template, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	const q = `
SELECT id, COALESCE(user_id, ''), name, content, tags, is_global, created_at, updated_at
FROM sms_templates
WHERE is_global OR user_id = $1
ORDER BY name
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		var t Template
		var tags string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Content, &tags, &t.IsGlobal, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Tags = splitTags(tags)
		out = append(out, t)
	}
	return out, rows.Err()
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
