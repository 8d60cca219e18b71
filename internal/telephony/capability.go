package telephony

import "context"

// CallController is the provider-agnostic call-control capability.
//
// Rules:
//   - No provider SDK or HTTP calls outside telephony adapters.
//   - Every command is fire-and-forget: it enqueues work on the provider side
//     and the outcome arrives later as a webhook event.
//   - Failures surface to the immediate caller; nothing retries automatically.
type CallController interface {
	Answer(ctx context.Context, callControlID string) error

	// Transfer bridges the call to a new destination. timeoutSecs bounds ring
	// time at the provider; the caller does not wait for the leg to complete.
	Transfer(ctx context.Context, callControlID, to string, timeoutSecs int) error

	PlayAudio(ctx context.Context, callControlID, audioURL string) error
	Speak(ctx context.Context, callControlID, text, voice, locale string) error

	// Gather collects up to maxDigits DTMF digits; the result arrives as a
	// call.gather.ended event.
	Gather(ctx context.Context, callControlID string, maxDigits, timeoutSecs int) error

	// StartRecording begins recording; recording end is driven externally
	// (hangup or provider max duration) and surfaces as call.recording.saved.
	StartRecording(ctx context.Context, callControlID string, req RecordingRequest) error
}

type RecordingRequest struct {
	Format   string `json:"format"`   // "mp3" or "wav"
	Channels string `json:"channels"` // "single" or "dual"
	PlayBeep bool   `json:"play_beep"`
}

// Messenger is the outbound SMS capability.
type Messenger interface {
	Send(ctx context.Context, req SendMessageRequest) (SendMessageResult, error)
}

type SendMessageRequest struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Text      string   `json:"text"`
	MediaURLs []string `json:"media_urls,omitempty"`
}

type SendMessageResult struct {
	// ID is the provider message identifier.
	ID string `json:"id"`
}
