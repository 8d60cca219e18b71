package callrouter

import (
	"context"
	"errors"
	"fmt"

	"telephony-backoffice/internal/telephony"
	"telephony-backoffice/internal/users"
)

// Ring and gather timeouts are enforced by the provider, not locally.
const (
	ringTimeoutSecs = 15
	dtmfTimeoutSecs = 5
	dtmfMaxDigits   = 1
)

// AvailabilityChecker is the oracle consulted per call; nothing is cached
// between calls.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, u users.User) (bool, error)
}

// VoicemailRecorder greets the caller and starts recording.
type VoicemailRecorder interface {
	SendToVoicemail(ctx context.Context, callControlID string, u users.User) error
}

// Router decides how to dispatch an inbound call.
//
// Priority order, evaluated once per call:
//  1. User available now: transfer to the user's own device.
//  2. Live-agent routing configured: transfer to the live agent.
//  3. Otherwise: unavailable prompt and a single-digit DTMF gather.
//
// Every provider command is fire-and-forget; the router never waits for a
// call leg to complete, it observes outcomes via later webhook events. A
// failed command surfaces as an error with no retry.
type Router struct {
	Calls        telephony.CallController
	Availability AvailabilityChecker
	Recorder     VoicemailRecorder

	// CentralNumber receives calls when the caller presses 2.
	CentralNumber string

	// UnavailablePromptURL is the fixed prompt played before the gather.
	UnavailablePromptURL string
}

func New(calls telephony.CallController, avail AvailabilityChecker, rec VoicemailRecorder, centralNumber, promptURL string) *Router {
	return &Router{
		Calls:                calls,
		Availability:         avail,
		Recorder:             rec,
		CentralNumber:        centralNumber,
		UnavailablePromptURL: promptURL,
	}
}

func (r *Router) HandleIncomingCall(ctx context.Context, u users.User, callControlID string) (Decision, error) {
	if callControlID == "" {
		return Decision{}, errors.New("callrouter: call_control_id required")
	}

	available, err := r.Availability.IsAvailable(ctx, u)
	if err != nil {
		return Decision{}, fmt.Errorf("callrouter: availability check: %w", err)
	}

	if available {
		if err := r.Calls.Answer(ctx, callControlID); err != nil {
			return Decision{}, fmt.Errorf("callrouter: answer: %w", err)
		}
		if err := r.Calls.Transfer(ctx, callControlID, u.ForwardNumber, ringTimeoutSecs); err != nil {
			return Decision{}, fmt.Errorf("callrouter: transfer: %w", err)
		}
		return Decision{Action: ActionForwarded, Detail: u.ForwardNumber, Reason: "available"}, nil
	}

	if u.RouteToLiveAgent && u.LiveAgentNumber != "" {
		if err := r.Calls.Answer(ctx, callControlID); err != nil {
			return Decision{}, fmt.Errorf("callrouter: answer: %w", err)
		}
		if err := r.Calls.Transfer(ctx, callControlID, u.LiveAgentNumber, ringTimeoutSecs); err != nil {
			return Decision{}, fmt.Errorf("callrouter: transfer to agent: %w", err)
		}
		return Decision{Action: ActionRoutedToAgent, Detail: u.LiveAgentNumber, Reason: "live_agent"}, nil
	}

	if err := r.Calls.Answer(ctx, callControlID); err != nil {
		return Decision{}, fmt.Errorf("callrouter: answer: %w", err)
	}
	if err := r.Calls.PlayAudio(ctx, callControlID, r.UnavailablePromptURL); err != nil {
		return Decision{}, fmt.Errorf("callrouter: unavailable prompt: %w", err)
	}
	if err := r.Calls.Gather(ctx, callControlID, dtmfMaxDigits, dtmfTimeoutSecs); err != nil {
		return Decision{}, fmt.Errorf("callrouter: gather: %w", err)
	}
	return Decision{Action: ActionUnavailablePrompt, Reason: "unavailable"}, nil
}

// HandleUnavailableDTMF routes the caller's digit after the unavailable
// prompt. Digit 2 goes to the central forwarding number; digit 1, a gather
// timeout (empty digit) and any other digit all fall back to voicemail.
func (r *Router) HandleUnavailableDTMF(ctx context.Context, u users.User, callControlID, digit string) (Decision, error) {
	if callControlID == "" {
		return Decision{}, errors.New("callrouter: call_control_id required")
	}

	if digit == "2" {
		if err := r.Calls.Transfer(ctx, callControlID, r.CentralNumber, ringTimeoutSecs); err != nil {
			return Decision{}, fmt.Errorf("callrouter: central transfer: %w", err)
		}
		return Decision{Action: ActionForwardedToCentral, Detail: r.CentralNumber, Reason: "digit_2"}, nil
	}

	reason := "digit_1"
	if digit == "" {
		reason = "gather_timeout"
	} else if digit != "1" {
		reason = "digit_fallthrough"
	}

	if err := r.Recorder.SendToVoicemail(ctx, callControlID, u); err != nil {
		return Decision{}, fmt.Errorf("callrouter: voicemail: %w", err)
	}
	return Decision{Action: ActionVoicemail, Reason: reason}, nil
}
