package voicemail

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"telephony-backoffice/internal/config"
	"telephony-backoffice/internal/telephony"
	"telephony-backoffice/internal/users"
	"telephony-backoffice/pkg/logger"
)

const defaultGreetingText = "The person you are calling is not available. Please leave a message after the beep."

// Recorder plays a greeting and starts recording on a call leg.
//
// Greeting source: the user's custom greeting URL when set, otherwise a
// deterministic default asset derived from the first name. If audio playback
// fails the recorder falls back to synthesized speech of the user's greeting
// text. Recording end is driven externally (hangup or provider max duration)
// and surfaces later as a recording-saved event.
type Recorder struct {
	Calls     telephony.CallController
	Greetings config.GreetingsConfig

	// Sleep separates greeting playback from recording start on the audio
	// path; injectable so tests run instantly.
	Sleep func(time.Duration)
}

func NewRecorder(calls telephony.CallController, cfg config.GreetingsConfig) *Recorder {
	return &Recorder{Calls: calls, Greetings: cfg, Sleep: time.Sleep}
}

// GreetingURL returns the audio asset to play for u.
func (r *Recorder) GreetingURL(u users.User) string {
	if u.VoicemailGreetingURL != "" {
		return u.VoicemailGreetingURL
	}
	name := strings.TrimSpace(u.FirstName)
	if name == "" {
		name = "Default"
	}
	return strings.TrimRight(r.Greetings.AssetBaseURL, "/") + "/" + url.PathEscape(name+" Voicemail.mp3")
}

// SendToVoicemail greets the caller and starts recording.
func (r *Recorder) SendToVoicemail(ctx context.Context, callControlID string, u users.User) error {
	if callControlID == "" {
		return fmt.Errorf("voicemail: call_control_id required")
	}

	if err := r.Calls.PlayAudio(ctx, callControlID, r.GreetingURL(u)); err != nil {
		logger.From(ctx).Warn("greeting audio failed, falling back to speech",
			"user_id", u.ID, "call_control_id", callControlID, "err", err)

		text := u.VoicemailGreeting
		if text == "" {
			text = defaultGreetingText
		}
		if err := r.Calls.Speak(ctx, callControlID, text, r.Greetings.Voice, r.Greetings.Locale); err != nil {
			return fmt.Errorf("voicemail greeting: %w", err)
		}
		// Speech path starts recording immediately; the provider queues the
		// record command behind the speak command.
	} else {
		r.Sleep(time.Second)
	}

	if err := r.Calls.StartRecording(ctx, callControlID, telephony.RecordingRequest{
		Format:   "mp3",
		Channels: "single",
		PlayBeep: true,
	}); err != nil {
		return fmt.Errorf("voicemail record start: %w", err)
	}
	return nil
}
