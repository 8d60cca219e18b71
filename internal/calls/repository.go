package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

// Repository is the persistence boundary for call records.
type Repository interface {
	Create(ctx context.Context, c Call) (Call, error)
	GetByExternalID(ctx context.Context, externalCallID string) (Call, error)
	UpdateStatus(ctx context.Context, externalCallID string, status Status) error
	MarkEnded(ctx context.Context, externalCallID string, status Status, endTime time.Time, durationSeconds int) error
	SetRecordingURL(ctx context.Context, externalCallID, url string) error
	SetVoicemailURL(ctx context.Context, externalCallID, url string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Call, error)
}

// PostgresRepo assumes a calls table with a UNIQUE constraint on
// external_call_id; Create is idempotent against webhook redelivery.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const callColumns = `
id, user_id, external_call_id, direction, from_number, to_number, status,
duration_seconds, start_time, end_time, recording_url, voicemail_url, notes
`

func scanCall(scan func(...any) error) (Call, error) {
	var c Call
	err := scan(
		&c.ID, &c.UserID, &c.ExternalCallID, &c.Direction, &c.From, &c.To, &c.Status,
		&c.DurationSeconds, &c.StartTime, &c.EndTime, &c.RecordingURL, &c.VoicemailURL, &c.Notes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	return c, nil
}

func (r *PostgresRepo) Create(ctx context.Context, c Call) (Call, error) {
	if c.UserID == "" || c.ExternalCallID == "" {
		return Call{}, ErrInvalidArgument
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusInitiated
	}

	const q = `
INSERT INTO calls (id, user_id, external_call_id, direction, from_number, to_number, status,
                   duration_seconds, start_time, end_time, recording_url, voicemail_url, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (external_call_id) DO NOTHING
`
	if _, err := r.db.ExecContext(ctx, q,
		c.ID, c.UserID, c.ExternalCallID, c.Direction, c.From, c.To, c.Status,
		c.DurationSeconds, c.StartTime, c.EndTime, c.RecordingURL, c.VoicemailURL, c.Notes,
	); err != nil {
		return Call{}, err
	}
	// Return the winning row, which may predate this insert on redelivery.
	return r.GetByExternalID(ctx, c.ExternalCallID)
}

func (r *PostgresRepo) GetByExternalID(ctx context.Context, externalCallID string) (Call, error) {
	if externalCallID == "" {
		return Call{}, ErrInvalidArgument
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+callColumns+` FROM calls WHERE external_call_id = $1`, externalCallID)
	return scanCall(row.Scan)
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, externalCallID string, status Status) error {
	if externalCallID == "" || status == "" {
		return ErrInvalidArgument
	}
	res, err := r.db.ExecContext(ctx, `UPDATE calls SET status = $2 WHERE external_call_id = $1`, externalCallID, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) MarkEnded(ctx context.Context, externalCallID string, status Status, endTime time.Time, durationSeconds int) error {
	if externalCallID == "" || status == "" {
		return ErrInvalidArgument
	}
	const q = `
UPDATE calls SET status = $2, end_time = $3, duration_seconds = $4
WHERE external_call_id = $1
`
	res, err := r.db.ExecContext(ctx, q, externalCallID, status, endTime, durationSeconds)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) SetRecordingURL(ctx context.Context, externalCallID, url string) error {
	return r.setURL(ctx, externalCallID, "recording_url", url)
}

func (r *PostgresRepo) SetVoicemailURL(ctx context.Context, externalCallID, url string) error {
	return r.setURL(ctx, externalCallID, "voicemail_url", url)
}

func (r *PostgresRepo) setURL(ctx context.Context, externalCallID, column, url string) error {
	if externalCallID == "" || url == "" {
		return ErrInvalidArgument
	}
	// column is one of two constants above; never caller input.
	res, err := r.db.ExecContext(ctx, `UPDATE calls SET `+column+` = $2 WHERE external_call_id = $1`, externalCallID, url)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Call, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+callColumns+` FROM calls WHERE user_id = $1 ORDER BY start_time DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCall(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
