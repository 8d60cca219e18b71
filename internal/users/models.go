package users

import "time"

// User is the root aggregate for the back office. Calls, messages, voicemails
// and automations hold a non-owning user_id reference back to it.
type User struct {
	ID        string `json:"id" db:"id"`
	Email     string `json:"email" db:"email"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`

	// AssignedNumber is the provider number callers and texters reach (E.164).
	AssignedNumber string `json:"assigned_number" db:"assigned_number"`

	// ForwardNumber is the user's own device; available calls transfer here.
	ForwardNumber string `json:"forward_number" db:"forward_number"`

	RouteToLiveAgent bool   `json:"route_to_live_agent" db:"route_to_live_agent"`
	LiveAgentNumber  string `json:"live_agent_number,omitempty" db:"live_agent_number"`

	// VoicemailGreetingURL points at a custom greeting asset. When empty, a
	// default asset URL is derived from the first name.
	VoicemailGreetingURL string `json:"voicemail_greeting_url,omitempty" db:"voicemail_greeting_url"`

	// VoicemailGreeting is the text spoken when greeting audio fails.
	VoicemailGreeting string `json:"voicemail_greeting" db:"voicemail_greeting"`

	CalendarEnabled bool `json:"calendar_enabled" db:"calendar_enabled"`

	// BlockDuringEvents makes calendar events with make_unavailable override
	// the weekly schedule.
	BlockDuringEvents bool `json:"block_during_events" db:"block_during_events"`

	// Schedule holds exactly one record per weekday.
	Schedule []DaySchedule `json:"schedule"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DaySchedule is one weekday's availability window. Times are zero-padded
// 24-hour "HH:MM" strings compared lexicographically; a window that crosses
// midnight therefore never matches.
type DaySchedule struct {
	Day         string `json:"day" db:"day"`
	IsAvailable bool   `json:"is_available" db:"is_available"`
	StartTime   string `json:"start_time" db:"start_time"`
	EndTime     string `json:"end_time" db:"end_time"`
}

// DefaultSchedule is Mon-Fri 09:00-17:00 available, weekends off.
func DefaultSchedule() []DaySchedule {
	days := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	out := make([]DaySchedule, 0, len(days))
	for _, d := range days {
		avail := d != "Saturday" && d != "Sunday"
		out = append(out, DaySchedule{Day: d, IsAvailable: avail, StartTime: "09:00", EndTime: "17:00"})
	}
	return out
}
