package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresRepository persists automations with conditions and actions as
// JSONB columns, and deferred actions in scheduled_actions.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository { return &PostgresRepository{db: db} }

const automationColumns = `
id, user_id, name, is_active, phone_number, conditions, actions,
times_triggered, last_triggered, success_count, error_count, created_at, updated_at
`

func (r *PostgresRepository) Create(ctx context.Context, a Automation) (Automation, error) {
	if a.UserID == "" || a.Name == "" {
		return Automation{}, ErrInvalidArgument
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	conds, acts, err := marshalRule(a)
	if err != nil {
		return Automation{}, err
	}
	const q = `
INSERT INTO sms_automations (id, user_id, name, is_active, phone_number, conditions, actions, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
RETURNING ` + automationColumns
	row := r.db.QueryRowContext(ctx, q, a.ID, a.UserID, a.Name, a.IsActive, a.PhoneNumber, conds, acts)
	return scanAutomation(row)
}

func (r *PostgresRepository) Update(ctx context.Context, a Automation) (Automation, error) {
	conds, acts, err := marshalRule(a)
	if err != nil {
		return Automation{}, err
	}
	const q = `
UPDATE sms_automations
SET name = $3, is_active = $4, phone_number = $5, conditions = $6, actions = $7, updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + automationColumns
	row := r.db.QueryRowContext(ctx, q, a.ID, a.UserID, a.Name, a.IsActive, a.PhoneNumber, conds, acts)
	out, err := scanAutomation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Automation{}, ErrNotFound
	}
	return out, err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Automation, error) {
	const q = `SELECT ` + automationColumns + ` FROM sms_automations WHERE id = $1`
	a, err := scanAutomation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Automation{}, ErrNotFound
	}
	return a, err
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Automation, error) {
	const q = `SELECT ` + automationColumns + ` FROM sms_automations WHERE user_id = $1 ORDER BY created_at`
	return r.queryAutomations(ctx, q, userID)
}

func (r *PostgresRepository) SetActive(ctx context.Context, userID, id string, active bool) error {
	const q = `UPDATE sms_automations SET is_active = $3, updated_at = now() WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, q, id, userID, active)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sms_automations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListActiveByNumber(ctx context.Context, phoneNumber string, types []ConditionType) ([]Automation, error) {
	const q = `SELECT ` + automationColumns + ` FROM sms_automations WHERE is_active AND phone_number = $1 ORDER BY created_at`
	all, err := r.queryAutomations(ctx, q, phoneNumber)
	if err != nil {
		return nil, err
	}
	return filterByTypes(all, types), nil
}

func (r *PostgresRepository) ListActiveByTypes(ctx context.Context, types []ConditionType) ([]Automation, error) {
	const q = `SELECT ` + automationColumns + ` FROM sms_automations WHERE is_active ORDER BY created_at`
	all, err := r.queryAutomations(ctx, q)
	if err != nil {
		return nil, err
	}
	return filterByTypes(all, types), nil
}

func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string, types []ConditionType) ([]Automation, error) {
	const q = `SELECT ` + automationColumns + ` FROM sms_automations WHERE is_active AND user_id = $1 ORDER BY created_at`
	all, err := r.queryAutomations(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	return filterByTypes(all, types), nil
}

func (r *PostgresRepository) RecordTrigger(ctx context.Context, id string, at time.Time) error {
	const q = `
UPDATE sms_automations
SET times_triggered = times_triggered + 1, last_triggered = $2, updated_at = now()
WHERE id = $1`
	return r.exec(ctx, q, id, at.UTC())
}

func (r *PostgresRepository) IncrementSuccess(ctx context.Context, id string) error {
	const q = `UPDATE sms_automations SET success_count = success_count + 1, updated_at = now() WHERE id = $1`
	return r.exec(ctx, q, id)
}

func (r *PostgresRepository) IncrementError(ctx context.Context, id string) error {
	const q = `UPDATE sms_automations SET error_count = error_count + 1, updated_at = now() WHERE id = $1`
	return r.exec(ctx, q, id)
}

func (r *PostgresRepository) CreateScheduled(ctx context.Context, s ScheduledAction) (ScheduledAction, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = ScheduledPending
	}
	action, err := json.Marshal(s.Action)
	if err != nil {
		return ScheduledAction{}, fmt.Errorf("marshal action: %w", err)
	}
	eventCtx, err := json.Marshal(s.Context)
	if err != nil {
		return ScheduledAction{}, fmt.Errorf("marshal context: %w", err)
	}
	const q = `
INSERT INTO scheduled_actions (id, automation_id, action, context, due_at, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
RETURNING created_at`
	if err := r.db.QueryRowContext(ctx, q, s.ID, s.AutomationID, action, eventCtx, s.DueAt.UTC(), s.Status).Scan(&s.CreatedAt); err != nil {
		return ScheduledAction{}, err
	}
	return s, nil
}

func (r *PostgresRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]ScheduledAction, error) {
	const q = `
SELECT id, automation_id, action, context, due_at, status, created_at
FROM scheduled_actions
WHERE status = 'pending' AND due_at <= $1
ORDER BY due_at
LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScheduledAction
	for rows.Next() {
		var s ScheduledAction
		var action, eventCtx []byte
		if err := rows.Scan(&s.ID, &s.AutomationID, &action, &eventCtx, &s.DueAt, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(action, &s.Action); err != nil {
			return nil, fmt.Errorf("unmarshal action %s: %w", s.ID, err)
		}
		if err := json.Unmarshal(eventCtx, &s.Context); err != nil {
			return nil, fmt.Errorf("unmarshal context %s: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) MarkStatus(ctx context.Context, id string, status ScheduledStatus) error {
	return r.exec(ctx, `UPDATE scheduled_actions SET status = $2 WHERE id = $1`, id, status)
}

func (r *PostgresRepository) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) queryAutomations(ctx context.Context, q string, args ...any) ([]Automation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Automation
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAutomation(row rowScanner) (Automation, error) {
	var a Automation
	var conds, acts []byte
	if err := row.Scan(
		&a.ID, &a.UserID, &a.Name, &a.IsActive, &a.PhoneNumber, &conds, &acts,
		&a.Stats.TimesTriggered, &a.Stats.LastTriggered, &a.Stats.SuccessCount, &a.Stats.ErrorCount,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return Automation{}, err
	}
	if err := json.Unmarshal(conds, &a.Conditions); err != nil {
		return Automation{}, fmt.Errorf("unmarshal conditions %s: %w", a.ID, err)
	}
	if err := json.Unmarshal(acts, &a.Actions); err != nil {
		return Automation{}, fmt.Errorf("unmarshal actions %s: %w", a.ID, err)
	}
	return a, nil
}

func marshalRule(a Automation) (conds, acts []byte, err error) {
	if conds, err = json.Marshal(a.Conditions); err != nil {
		return nil, nil, fmt.Errorf("marshal conditions: %w", err)
	}
	if acts, err = json.Marshal(a.Actions); err != nil {
		return nil, nil, fmt.Errorf("marshal actions: %w", err)
	}
	return conds, acts, nil
}

func filterByTypes(all []Automation, types []ConditionType) []Automation {
	var out []Automation
	for _, a := range all {
		if hasConditionOfType(a, types) {
			out = append(out, a)
		}
	}
	return out
}
