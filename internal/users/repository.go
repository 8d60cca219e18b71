package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"telephony-backoffice/pkg/utils"
)

var (
	ErrNotFound        = errors.New("users: not found")
	ErrInvalidArgument = errors.New("users: invalid argument")
)

// Repository is the persistence boundary for user aggregates.
type Repository interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByAssignedNumber(ctx context.Context, number string) (User, error)
	List(ctx context.Context) ([]User, error)
	UpdateSchedule(ctx context.Context, userID string, schedule []DaySchedule) error
}

// PostgresRepo stores users and their weekly schedule.
//
// Assumes tables:
// - users
// - user_schedule (one row per user per weekday)
type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

const userColumns = `
id, email, first_name, last_name, assigned_number, forward_number,
route_to_live_agent, live_agent_number, voicemail_greeting_url, voicemail_greeting,
calendar_enabled, block_during_events, created_at, updated_at
`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.AssignedNumber, &u.ForwardNumber,
		&u.RouteToLiveAgent, &u.LiveAgentNumber, &u.VoicemailGreetingURL, &u.VoicemailGreeting,
		&u.CalendarEnabled, &u.BlockDuringEvents, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrInvalidArgument
	}
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return User{}, err
	}
	return r.attachSchedule(ctx, u)
}

func (r *PostgresRepo) GetByAssignedNumber(ctx context.Context, number string) (User, error) {
	if number == "" {
		return User{}, ErrInvalidArgument
	}
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE assigned_number = $1`, number))
	if err != nil {
		return User{}, err
	}
	return r.attachSchedule(ctx, u)
}

func (r *PostgresRepo) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.AssignedNumber, &u.ForwardNumber,
			&u.RouteToLiveAgent, &u.LiveAgentNumber, &u.VoicemailGreetingURL, &u.VoicemailGreeting,
			&u.CalendarEnabled, &u.BlockDuringEvents, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		u, err := r.attachSchedule(ctx, out[i])
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}

func (r *PostgresRepo) attachSchedule(ctx context.Context, u User) (User, error) {
	const q = `
SELECT day, is_available, start_time, end_time
FROM user_schedule
WHERE user_id = $1
ORDER BY position
`
	rows, err := r.db.QueryContext(ctx, q, u.ID)
	if err != nil {
		return User{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var d DaySchedule
		if err := rows.Scan(&d.Day, &d.IsAvailable, &d.StartTime, &d.EndTime); err != nil {
			return User{}, err
		}
		u.Schedule = append(u.Schedule, d)
	}
	if err := rows.Err(); err != nil {
		return User{}, err
	}
	if len(u.Schedule) == 0 {
		u.Schedule = DefaultSchedule()
	}
	return u, nil
}

func (r *PostgresRepo) UpdateSchedule(ctx context.Context, userID string, schedule []DaySchedule) error {
	if userID == "" || len(schedule) != 7 {
		return ErrInvalidArgument
	}
	now := r.clock().UTC()
	return utils.WithTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_schedule WHERE user_id = $1`, userID); err != nil {
			return err
		}
		const ins = `
INSERT INTO user_schedule (user_id, position, day, is_available, start_time, end_time)
VALUES ($1, $2, $3, $4, $5, $6)
`
		for i, d := range schedule {
			if _, err := tx.ExecContext(ctx, ins, userID, i, d.Day, d.IsAvailable, d.StartTime, d.EndTime); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `UPDATE users SET updated_at = $2 WHERE id = $1`, userID, now)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
