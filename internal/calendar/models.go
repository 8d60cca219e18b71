package calendar

import "time"

// Event is a cached copy of one external provider event.
//
// The cache is replaced wholesale on each sync cycle; there is no incremental
// merge. Rows are owned by the user record and consulted read-only by the
// availability oracle.
type Event struct {
	EventID string `json:"event_id" db:"event_id"`
	UserID  string `json:"user_id" db:"user_id"`

	Title     string    `json:"title" db:"title"`
	StartTime time.Time `json:"start_time" db:"start_time"`
	EndTime   time.Time `json:"end_time" db:"end_time"`
	AllDay    bool      `json:"all_day" db:"all_day"`

	// Recurrence is the provider's recurrence rule, stored verbatim.
	Recurrence string `json:"recurrence,omitempty" db:"recurrence"`

	Status EventStatus `json:"status" db:"status"`

	// MakeUnavailable marks this event as blocking availability.
	MakeUnavailable bool `json:"make_unavailable" db:"make_unavailable"`
}

type EventStatus string

const (
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusTentative EventStatus = "tentative"
	EventStatusCancelled EventStatus = "cancelled"
)
