package voicemail

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("voicemail: not found")
	ErrInvalidArgument = errors.New("voicemail: invalid argument")
)

// Repository is the persistence boundary for voicemail records.
type Repository interface {
	// CreateOnce inserts the voicemail unless one already exists for the same
	// external call id. Returns the stored record and whether it was created.
	CreateOnce(ctx context.Context, v Voicemail) (Voicemail, bool, error)
	MarkRead(ctx context.Context, userID, voicemailID string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Voicemail, error)
}

// PostgresRepo assumes a voicemails table with UNIQUE (external_call_id).
type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

const vmColumns = `
id, user_id, external_call_id, from_number, to_number, duration_seconds,
recording_url, transcription, is_new, notes, created_at
`

func (r *PostgresRepo) CreateOnce(ctx context.Context, v Voicemail) (Voicemail, bool, error) {
	if v.UserID == "" || v.ExternalCallID == "" || v.RecordingURL == "" {
		return Voicemail{}, false, ErrInvalidArgument
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = r.clock().UTC()
	}
	v.IsNew = true

	const q = `
INSERT INTO voicemails (id, user_id, external_call_id, from_number, to_number, duration_seconds,
                        recording_url, transcription, is_new, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (external_call_id) DO NOTHING
`
	res, err := r.db.ExecContext(ctx, q,
		v.ID, v.UserID, v.ExternalCallID, v.From, v.To, v.DurationSeconds,
		v.RecordingURL, v.Transcription, v.IsNew, v.Notes, v.CreatedAt,
	)
	if err != nil {
		return Voicemail{}, false, err
	}

	n, _ := res.RowsAffected()
	row := r.db.QueryRowContext(ctx, `SELECT `+vmColumns+` FROM voicemails WHERE external_call_id = $1`, v.ExternalCallID)
	stored, err := scanVoicemail(row.Scan)
	if err != nil {
		return Voicemail{}, false, err
	}
	return stored, n > 0, nil
}

func (r *PostgresRepo) MarkRead(ctx context.Context, userID, voicemailID string) error {
	if userID == "" || voicemailID == "" {
		return ErrInvalidArgument
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE voicemails SET is_new = FALSE WHERE id = $1 AND user_id = $2`, voicemailID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Voicemail, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+vmColumns+` FROM voicemails WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Voicemail
	for rows.Next() {
		v, err := scanVoicemail(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVoicemail(scan func(...any) error) (Voicemail, error) {
	var v Voicemail
	err := scan(
		&v.ID, &v.UserID, &v.ExternalCallID, &v.From, &v.To, &v.DurationSeconds,
		&v.RecordingURL, &v.Transcription, &v.IsNew, &v.Notes, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Voicemail{}, ErrNotFound
		}
		return Voicemail{}, err
	}
	return v, nil
}
