package sms

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("sms: not found")
	ErrInvalidArgument = errors.New("sms: invalid argument")
)

// Repository is the persistence boundary for SMS records.
type Repository interface {
	Create(ctx context.Context, m Message) (Message, error)
	UpdateStatusByExternalID(ctx context.Context, externalMessageID string, status Status) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Message, error)
}

type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

func (r *PostgresRepo) Create(ctx context.Context, m Message) (Message, error) {
	if m.UserID == "" || m.From == "" || m.To == "" {
		return Message{}, ErrInvalidArgument
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.clock().UTC()
	}

	const q = `
INSERT INTO sms_messages (id, user_id, external_message_id, direction, from_number, to_number, text, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	if _, err := r.db.ExecContext(ctx, q,
		m.ID, m.UserID, m.ExternalMessageID, m.Direction, m.From, m.To, m.Text, m.Status, m.CreatedAt,
	); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (r *PostgresRepo) UpdateStatusByExternalID(ctx context.Context, externalMessageID string, status Status) error {
	if externalMessageID == "" || status == "" {
		return ErrInvalidArgument
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE sms_messages SET status = $2 WHERE external_message_id = $1`, externalMessageID, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Message, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `
SELECT id, user_id, external_message_id, direction, from_number, to_number, text, status, created_at
FROM sms_messages
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.ExternalMessageID, &m.Direction, &m.From, &m.To, &m.Text, &m.Status, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
