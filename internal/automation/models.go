package automation

import "time"

// Automation is a user-configured trigger/action rule for sending SMS in
// response to events. An automation with zero conditions never triggers.
type Automation struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	Name     string `json:"name" db:"name"`
	IsActive bool   `json:"is_active" db:"is_active"`

	// PhoneNumber scopes the automation to one provider number.
	PhoneNumber string `json:"phone_number" db:"phone_number"`

	Conditions []Condition `json:"conditions"`
	Actions    []Action    `json:"actions"`

	Stats Statistics `json:"statistics"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ConditionType string

const (
	ConditionIncomingCall  ConditionType = "incomingCall"
	ConditionMissedCall    ConditionType = "missedCall"
	ConditionVoicemail     ConditionType = "voicemail"
	ConditionScheduledTime ConditionType = "scheduledTime"
	ConditionIncomingSMS   ConditionType = "incomingSms"
	ConditionKeywordSMS    ConditionType = "keywordSms"
	ConditionAvailability  ConditionType = "availability"
)

type Condition struct {
	Type       ConditionType   `json:"type"`
	Parameters ConditionParams `json:"parameters"`
}

type ConditionParams struct {
	// Keywords apply to keywordSms; matching is case-insensitive substring.
	Keywords []string `json:"keywords,omitempty"`

	// Time ("HH:MM") and DaysOfWeek apply to scheduledTime. Matching is
	// exact string equality, so a fire happens only in the single minute
	// matching the configured time; missed minutes are not caught up.
	Time       string   `json:"time,omitempty"`
	DaysOfWeek []string `json:"daysOfWeek,omitempty"`

	// AvailabilityStatus applies to availability conditions:
	// "available", "unavailable" or the sentinel "any".
	AvailabilityStatus string `json:"availabilityStatus,omitempty"`
}

type ActionType string

const (
	ActionSendSMS    ActionType = "sendSms"
	ActionNotify     ActionType = "notify"
	ActionTag        ActionType = "tag"
	ActionAddToGroup ActionType = "addToGroup"
)

type Action struct {
	Type       ActionType   `json:"type"`
	Parameters ActionParams `json:"parameters"`
}

type ActionParams struct {
	// TemplateID references a stored template; Message is a literal body.
	// TemplateID wins when both are set.
	TemplateID string `json:"template,omitempty"`
	Message    string `json:"message,omitempty"`

	// Recipients override the reply-to-sender default. Needed for triggers
	// with no counterparty, like scheduled sends.
	Recipients []string `json:"recipients,omitempty"`

	// Delay defers execution; a zero value executes inline.
	Delay *Delay `json:"delay,omitempty"`

	NotifyMethod string   `json:"notifyMethod,omitempty"`
	NotifyUsers  []string `json:"notifyUsers,omitempty"`
}

type Delay struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"` // "minutes", "hours" or "days"
}

func (d Delay) Duration() time.Duration {
	switch d.Unit {
	case "hours":
		return time.Duration(d.Value) * time.Hour
	case "days":
		return time.Duration(d.Value) * 24 * time.Hour
	default:
		return time.Duration(d.Value) * time.Minute
	}
}

// Statistics keeps two independent counters: TimesTriggered/LastTriggered
// move when an automation matches; SuccessCount/ErrorCount move only on
// actual action outcomes, immediate or deferred.
type Statistics struct {
	TimesTriggered int        `json:"times_triggered" db:"times_triggered"`
	LastTriggered  *time.Time `json:"last_triggered,omitempty" db:"last_triggered"`
	SuccessCount   int        `json:"success_count" db:"success_count"`
	ErrorCount     int        `json:"error_count" db:"error_count"`
}

// ScheduledAction is a persisted deferred action. Rows survive restarts; the
// dispatcher re-arms pending rows by polling for due ones.
type ScheduledAction struct {
	ID           string `json:"id" db:"id"`
	AutomationID string `json:"automation_id" db:"automation_id"`

	Action  Action       `json:"action"`
	Context EventContext `json:"context"`

	DueAt  time.Time       `json:"due_at" db:"due_at"`
	Status ScheduledStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type ScheduledStatus string

const (
	ScheduledPending ScheduledStatus = "pending"
	ScheduledDone    ScheduledStatus = "done"
	ScheduledFailed  ScheduledStatus = "failed"
	ScheduledSkipped ScheduledStatus = "skipped"
)

// EventContext carries the triggering event's facts into action execution
// and template rendering. To is the automation's own number; From is the
// triggering party, empty for triggers without one.
type EventContext struct {
	UserID string `json:"user_id"`

	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	MessageText string `json:"message_text,omitempty"`

	CallType            string `json:"call_type,omitempty"` // "incoming", "missed" or "voicemail"
	CallDurationSeconds int    `json:"call_duration_seconds,omitempty"`

	AvailabilityStatus string `json:"availability_status,omitempty"`
}

// Result is the shared response shape of all engine entry points.
type Result struct {
	Processed            bool     `json:"processed"`
	TriggeredAutomations []string `json:"triggered_automations"`
	Total                int      `json:"total"`
}
