package calendar

import (
	"context"
	"database/sql"
	"errors"

	"telephony-backoffice/pkg/utils"
)

// PostgresStore persists cached calendar events.
//
// Assumes a calendar_events table keyed by (user_id, event_id).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) ReplaceEvents(ctx context.Context, userID string, events []Event) error {
	if userID == "" {
		return errors.New("user_id required")
	}
	return utils.WithTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_events WHERE user_id = $1`, userID); err != nil {
			return err
		}
		const q = `
INSERT INTO calendar_events (user_id, event_id, title, start_time, end_time, all_day, recurrence, status, make_unavailable)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
		for _, e := range events {
			if _, err := tx.ExecContext(ctx, q,
				userID, e.EventID, e.Title, e.StartTime, e.EndTime, e.AllDay, e.Recurrence, e.Status, e.MakeUnavailable,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) ListEvents(ctx context.Context, userID string) ([]Event, error) {
	if userID == "" {
		return nil, errors.New("user_id required")
	}
	const q = `
SELECT user_id, event_id, title, start_time, end_time, all_day, recurrence, status, make_unavailable
FROM calendar_events
WHERE user_id = $1
ORDER BY start_time
`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.UserID, &e.EventID, &e.Title, &e.StartTime, &e.EndTime, &e.AllDay, &e.Recurrence, &e.Status, &e.MakeUnavailable,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
