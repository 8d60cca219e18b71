package telephony

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"telephony-backoffice/internal/config"

	"github.com/go-resty/resty/v2"
)

const defaultTelnyxBaseURL = "https://api.telnyx.com/v2"

// TelnyxClient implements CallController and Messenger against the Telnyx
// REST API.
//
// The client is immutable after construction. Credential changes mean
// building a new client and swapping the reference, never mutating in place.
type TelnyxClient struct {
	http *resty.Client
}

func NewTelnyxClient(cfg config.TelnyxConfig) *TelnyxClient {
	base := cfg.BaseURL
	if base == "" {
		base = defaultTelnyxBaseURL
	}

	c := resty.New().
		SetBaseURL(base).
		SetAuthToken(cfg.APIKey).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")

	return &TelnyxClient{http: c}
}

func (t *TelnyxClient) Name() string { return "telnyx" }

// callAction posts a call-control command. Telnyx acks commands with 200 and
// delivers outcomes via webhooks, so a 2xx response is all we check here.
func (t *TelnyxClient) callAction(ctx context.Context, callControlID, action string, body any) error {
	if callControlID == "" {
		return fmt.Errorf("telnyx: call_control_id required for %s", action)
	}

	resp, err := t.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(fmt.Sprintf("/calls/%s/actions/%s", url.PathEscape(callControlID), action))
	if err != nil {
		return fmt.Errorf("telnyx %s: %w", action, err)
	}
	if resp.IsError() {
		return fmt.Errorf("telnyx %s: status %d: %s", action, resp.StatusCode(), resp.String())
	}
	return nil
}

func (t *TelnyxClient) Answer(ctx context.Context, callControlID string) error {
	return t.callAction(ctx, callControlID, "answer", map[string]any{})
}

func (t *TelnyxClient) Transfer(ctx context.Context, callControlID, to string, timeoutSecs int) error {
	if to == "" {
		return fmt.Errorf("telnyx: transfer destination required")
	}
	return t.callAction(ctx, callControlID, "transfer", map[string]any{
		"to":           to,
		"timeout_secs": timeoutSecs,
	})
}

func (t *TelnyxClient) PlayAudio(ctx context.Context, callControlID, audioURL string) error {
	if audioURL == "" {
		return fmt.Errorf("telnyx: audio_url required")
	}
	return t.callAction(ctx, callControlID, "playback_start", map[string]any{
		"audio_url": audioURL,
	})
}

func (t *TelnyxClient) Speak(ctx context.Context, callControlID, text, voice, locale string) error {
	if text == "" {
		return fmt.Errorf("telnyx: speak text required")
	}
	return t.callAction(ctx, callControlID, "speak", map[string]any{
		"payload":  text,
		"voice":    voice,
		"language": locale,
	})
}

func (t *TelnyxClient) Gather(ctx context.Context, callControlID string, maxDigits, timeoutSecs int) error {
	return t.callAction(ctx, callControlID, "gather", map[string]any{
		"maximum_digits": maxDigits,
		"timeout_millis": timeoutSecs * 1000,
	})
}

func (t *TelnyxClient) StartRecording(ctx context.Context, callControlID string, req RecordingRequest) error {
	return t.callAction(ctx, callControlID, "record_start", map[string]any{
		"format":    req.Format,
		"channels":  req.Channels,
		"play_beep": req.PlayBeep,
	})
}

func (t *TelnyxClient) Send(ctx context.Context, req SendMessageRequest) (SendMessageResult, error) {
	if req.From == "" || req.To == "" {
		return SendMessageResult{}, fmt.Errorf("telnyx: from and to are required")
	}

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}

	resp, err := t.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/messages")
	if err != nil {
		return SendMessageResult{}, fmt.Errorf("telnyx send: %w", err)
	}
	if resp.IsError() {
		return SendMessageResult{}, fmt.Errorf("telnyx send: status %d: %s", resp.StatusCode(), resp.String())
	}
	return SendMessageResult{ID: out.Data.ID}, nil
}
