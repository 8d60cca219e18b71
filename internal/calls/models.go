package calls

import "time"

// Call is one tracked phone call.
//
// Created on the call.initiated webhook (or an outbound dial request) and
// mutated by later webhook events. Concurrent status updates are
// last-write-wins per record; there is no version check.
type Call struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// ExternalCallID is the provider call-control identifier (unique).
	ExternalCallID string `json:"external_call_id" db:"external_call_id"`

	Direction Direction `json:"direction" db:"direction"`

	From string `json:"from" db:"from_number"`
	To   string `json:"to" db:"to_number"`

	Status Status `json:"status" db:"status"`

	DurationSeconds int `json:"duration" db:"duration_seconds"`

	StartTime time.Time  `json:"start_time" db:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" db:"end_time"`

	RecordingURL string `json:"recording_url,omitempty" db:"recording_url"`
	VoicemailURL string `json:"voicemail_url,omitempty" db:"voicemail_url"`
	Notes        string `json:"notes,omitempty" db:"notes"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Status string

const (
	StatusInitiated Status = "initiated"
	StatusRinging   Status = "ringing"
	StatusAnswered  Status = "answered"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusBusy      Status = "busy"
	StatusNoAnswer  Status = "no-answer"
	StatusForwarded Status = "forwarded"
	StatusVoicemail Status = "voicemail"
)
