package voicemail

import "time"

// Voicemail is one saved voicemail message. Created exactly once, when a
// recording-saved event arrives for a call whose status was voicemail.
type Voicemail struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// ExternalCallID is a weak reference to the originating call.
	ExternalCallID string `json:"external_call_id" db:"external_call_id"`

	From string `json:"from" db:"from_number"`
	To   string `json:"to" db:"to_number"`

	DurationSeconds int    `json:"duration" db:"duration_seconds"`
	RecordingURL    string `json:"recording_url" db:"recording_url"`
	Transcription   string `json:"transcription,omitempty" db:"transcription"`

	// IsNew transitions false on explicit mark-read only.
	IsNew bool   `json:"is_new" db:"is_new"`
	Notes string `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
