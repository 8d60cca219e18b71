package telephony

import (
	"encoding/json"
	"fmt"
	"time"
)

// Webhook events arrive as vendor envelopes {data: {event_type, payload}}.
// They are modeled here as a closed tagged union: exactly one payload pointer
// is set per event, keyed by Type, with EventUnknown as the explicit catchall
// instead of a silent fallthrough.

type EventType string

const (
	EventCallInitiated    EventType = "call.initiated"
	EventCallAnswered     EventType = "call.answered"
	EventCallHangup       EventType = "call.hangup"
	EventRecordingSaved   EventType = "call.recording.saved"
	EventGatherEnded      EventType = "call.gather.ended"
	EventMessageReceived  EventType = "message.received"
	EventMessageFinalized EventType = "message.finalized"
	EventUnknown          EventType = "unknown"
)

type Event struct {
	ID         string
	Type       EventType
	OccurredAt time.Time

	// RawType preserves the vendor event_type for EventUnknown.
	RawType string

	CallInitiated    *CallInitiatedPayload
	CallAnswered     *CallAnsweredPayload
	CallHangup       *CallHangupPayload
	RecordingSaved   *RecordingSavedPayload
	GatherEnded      *GatherEndedPayload
	MessageReceived  *MessageReceivedPayload
	MessageFinalized *MessageFinalizedPayload
}

type CallInitiatedPayload struct {
	CallControlID string `json:"call_control_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	Direction     string `json:"direction"`
}

type CallAnsweredPayload struct {
	CallControlID string `json:"call_control_id"`
	From          string `json:"from"`
	To            string `json:"to"`
}

type CallHangupPayload struct {
	CallControlID string `json:"call_control_id"`
	From          string `json:"from"`
	To            string `json:"to"`

	// HangupCause "unanswered" marks a missed call.
	HangupCause string `json:"hangup_cause"`
}

type RecordingSavedPayload struct {
	CallControlID string `json:"call_control_id"`
	RecordingURLs struct {
		MP3 string `json:"mp3"`
		WAV string `json:"wav"`
	} `json:"recording_urls"`
	DurationSecs int `json:"duration_secs"`
}

type GatherEndedPayload struct {
	CallControlID string `json:"call_control_id"`
	Digits        string `json:"digits"`
	Status        string `json:"status"` // "valid" or "call_hangup" or "timeout"
}

type MessageReceivedPayload struct {
	MessageID string
	From      string
	To        string
	Text      string
}

type MessageFinalizedPayload struct {
	MessageID string
	To        string
	Status    string
}

type envelope struct {
	Data struct {
		ID         string          `json:"id"`
		EventType  string          `json:"event_type"`
		OccurredAt time.Time       `json:"occurred_at"`
		Payload    json.RawMessage `json:"payload"`
	} `json:"data"`
}

// Wire shapes for messaging payloads; the vendor nests phone numbers.
type wireMessage struct {
	ID   string `json:"id"`
	From struct {
		PhoneNumber string `json:"phone_number"`
	} `json:"from"`
	To []struct {
		PhoneNumber string `json:"phone_number"`
		Status      string `json:"status"`
	} `json:"to"`
	Text string `json:"text"`
}

// ParseEvent decodes a vendor webhook body into the typed event union.
// An unrecognized event_type yields EventUnknown, not an error; malformed
// JSON is an error.
func ParseEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Event{}, fmt.Errorf("telephony: invalid webhook envelope: %w", err)
	}
	if env.Data.EventType == "" {
		return Event{}, fmt.Errorf("telephony: webhook envelope missing event_type")
	}

	ev := Event{
		ID:         env.Data.ID,
		OccurredAt: env.Data.OccurredAt,
		RawType:    env.Data.EventType,
	}

	switch EventType(env.Data.EventType) {
	case EventCallInitiated:
		var p CallInitiatedPayload
		if err := json.Unmarshal(env.Data.Payload, &p); err != nil {
			return Event{}, fmt.Errorf("telephony: %s payload: %w", env.Data.EventType, err)
		}
		ev.Type = EventCallInitiated
		ev.CallInitiated = &p

	case EventCallAnswered:
		var p CallAnsweredPayload
		if err := json.Unmarshal(env.Data.Payload, &p); err != nil {
			return Event{}, fmt.Errorf("telephony: %s payload: %w", env.Data.EventType, err)
		}
		ev.Type = EventCallAnswered
		ev.CallAnswered = &p

	case EventCallHangup:
		var p CallHangupPayload
		if err := json.Unmarshal(env.Data.Payload, &p); err != nil {
			return Event{}, fmt.Errorf("telephony: %s payload: %w", env.Data.EventType, err)
		}
		ev.Type = EventCallHangup
		ev.CallHangup = &p

	case EventRecordingSaved:
		var p RecordingSavedPayload
		if err := json.Unmarshal(env.Data.Payload, &p); err != nil {
			return Event{}, fmt.Errorf("telephony: %s payload: %w", env.Data.EventType, err)
		}
		ev.Type = EventRecordingSaved
		ev.RecordingSaved = &p

	case EventGatherEnded:
		var p GatherEndedPayload
		if err := json.Unmarshal(env.Data.Payload, &p); err != nil {
			return Event{}, fmt.Errorf("telephony: %s payload: %w", env.Data.EventType, err)
		}
		ev.Type = EventGatherEnded
		ev.GatherEnded = &p

	case EventMessageReceived:
		var w wireMessage
		if err := json.Unmarshal(env.Data.Payload, &w); err != nil {
			return Event{}, fmt.Errorf("telephony: %s payload: %w", env.Data.EventType, err)
		}
		p := MessageReceivedPayload{MessageID: w.ID, From: w.From.PhoneNumber, Text: w.Text}
		if len(w.To) > 0 {
			p.To = w.To[0].PhoneNumber
		}
		ev.Type = EventMessageReceived
		ev.MessageReceived = &p

	case EventMessageFinalized:
		var w wireMessage
		if err := json.Unmarshal(env.Data.Payload, &w); err != nil {
			return Event{}, fmt.Errorf("telephony: %s payload: %w", env.Data.EventType, err)
		}
		p := MessageFinalizedPayload{MessageID: w.ID}
		if len(w.To) > 0 {
			p.To = w.To[0].PhoneNumber
			p.Status = w.To[0].Status
		}
		ev.Type = EventMessageFinalized
		ev.MessageFinalized = &p

	default:
		ev.Type = EventUnknown
	}

	return ev, nil
}
