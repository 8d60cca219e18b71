package callrouter

import (
	"context"
	"errors"
	"testing"

	"telephony-backoffice/internal/telephony"
	"telephony-backoffice/internal/users"
)

type stubController struct {
	answered  []string
	transfers []struct {
		To      string
		Timeout int
	}
	played  []string
	gathers []struct {
		MaxDigits int
		Timeout   int
	}
	transferErr error
}

func (s *stubController) Answer(ctx context.Context, id string) error {
	s.answered = append(s.answered, id)
	return nil
}
func (s *stubController) Transfer(ctx context.Context, id, to string, timeoutSecs int) error {
	if s.transferErr != nil {
		return s.transferErr
	}
	s.transfers = append(s.transfers, struct {
		To      string
		Timeout int
	}{to, timeoutSecs})
	return nil
}
func (s *stubController) PlayAudio(ctx context.Context, id, url string) error {
	s.played = append(s.played, url)
	return nil
}
func (s *stubController) Speak(ctx context.Context, id, text, voice, locale string) error {
	return nil
}
func (s *stubController) Gather(ctx context.Context, id string, maxDigits, timeoutSecs int) error {
	s.gathers = append(s.gathers, struct {
		MaxDigits int
		Timeout   int
	}{maxDigits, timeoutSecs})
	return nil
}
func (s *stubController) StartRecording(ctx context.Context, id string, req telephony.RecordingRequest) error {
	return nil
}

type stubAvailability struct {
	available bool
	err       error
}

func (s stubAvailability) IsAvailable(ctx context.Context, u users.User) (bool, error) {
	return s.available, s.err
}

type stubRecorder struct {
	calls []string
	err   error
}

func (s *stubRecorder) SendToVoicemail(ctx context.Context, callControlID string, u users.User) error {
	s.calls = append(s.calls, callControlID)
	return s.err
}

func newTestRouter(ctrl *stubController, avail stubAvailability, rec *stubRecorder) *Router {
	return New(ctrl, avail, rec, "+15559990000", "https://assets.example.com/unavailable.mp3")
}

func testUser() users.User {
	return users.User{ID: "u1", ForwardNumber: "+15551112222", Schedule: users.DefaultSchedule()}
}

func TestAvailableForwardsToUser(t *testing.T) {
	ctrl := &stubController{}
	r := newTestRouter(ctrl, stubAvailability{available: true}, &stubRecorder{})

	d, err := r.HandleIncomingCall(context.Background(), testUser(), "cc-1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.Action != ActionForwarded {
		t.Fatalf("expected forwarded, got %q", d.Action)
	}
	if len(ctrl.answered) != 1 {
		t.Fatal("call must be answered before transfer")
	}
	if len(ctrl.transfers) != 1 || ctrl.transfers[0].To != "+15551112222" || ctrl.transfers[0].Timeout != 15 {
		t.Fatalf("unexpected transfer: %+v", ctrl.transfers)
	}
}

func TestUnavailableRoutesToLiveAgent(t *testing.T) {
	ctrl := &stubController{}
	u := testUser()
	u.RouteToLiveAgent = true
	u.LiveAgentNumber = "+15553334444"
	r := newTestRouter(ctrl, stubAvailability{available: false}, &stubRecorder{})

	d, err := r.HandleIncomingCall(context.Background(), u, "cc-1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.Action != ActionRoutedToAgent {
		t.Fatalf("expected routed_to_agent, got %q", d.Action)
	}
	if ctrl.transfers[0].To != "+15553334444" {
		t.Fatalf("unexpected target: %+v", ctrl.transfers)
	}
}

func TestLiveAgentRequiresNumber(t *testing.T) {
	ctrl := &stubController{}
	u := testUser()
	u.RouteToLiveAgent = true // but no number configured
	r := newTestRouter(ctrl, stubAvailability{available: false}, &stubRecorder{})

	d, err := r.HandleIncomingCall(context.Background(), u, "cc-1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.Action != ActionUnavailablePrompt {
		t.Fatalf("expected unavailable_prompt, got %q", d.Action)
	}
}

func TestUnavailablePromptPlaysAndGathers(t *testing.T) {
	ctrl := &stubController{}
	r := newTestRouter(ctrl, stubAvailability{available: false}, &stubRecorder{})

	d, err := r.HandleIncomingCall(context.Background(), testUser(), "cc-1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.Action != ActionUnavailablePrompt {
		t.Fatalf("expected unavailable_prompt, got %q", d.Action)
	}
	if len(ctrl.played) != 1 || ctrl.played[0] != "https://assets.example.com/unavailable.mp3" {
		t.Fatalf("unexpected prompt: %v", ctrl.played)
	}
	if len(ctrl.gathers) != 1 || ctrl.gathers[0].MaxDigits != 1 || ctrl.gathers[0].Timeout != 5 {
		t.Fatalf("unexpected gather: %+v", ctrl.gathers)
	}
	if len(ctrl.transfers) != 0 {
		t.Fatal("no transfer may be issued on the prompt path")
	}
}

func TestExactlyOneActionPerCall(t *testing.T) {
	cases := []struct {
		name  string
		avail bool
		agent bool
		want  Action
	}{
		{"available wins", true, true, ActionForwarded},
		{"agent next", false, true, ActionRoutedToAgent},
		{"prompt last", false, false, ActionUnavailablePrompt},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := &stubController{}
			u := testUser()
			if tc.agent {
				u.RouteToLiveAgent = true
				u.LiveAgentNumber = "+15553334444"
			}
			r := newTestRouter(ctrl, stubAvailability{available: tc.avail}, &stubRecorder{})
			d, err := r.HandleIncomingCall(context.Background(), u, "cc-1")
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if d.Action != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, d.Action)
			}
		})
	}
}

func TestDTMFBranches(t *testing.T) {
	cases := []struct {
		digit string
		want  Action
	}{
		{"1", ActionVoicemail},
		{"2", ActionForwardedToCentral},
		{"", ActionVoicemail},  // gather timeout
		{"9", ActionVoicemail}, // fallthrough
	}
	for _, tc := range cases {
		t.Run("digit_"+tc.digit, func(t *testing.T) {
			ctrl := &stubController{}
			rec := &stubRecorder{}
			r := newTestRouter(ctrl, stubAvailability{}, rec)

			d, err := r.HandleUnavailableDTMF(context.Background(), testUser(), "cc-1", tc.digit)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if d.Action != tc.want {
				t.Fatalf("digit %q: expected %q, got %q", tc.digit, tc.want, d.Action)
			}
			if tc.want == ActionForwardedToCentral {
				if len(ctrl.transfers) != 1 || ctrl.transfers[0].To != "+15559990000" {
					t.Fatalf("expected central transfer, got %+v", ctrl.transfers)
				}
				if len(rec.calls) != 0 {
					t.Fatal("recorder must not fire on digit 2")
				}
			} else {
				if len(rec.calls) != 1 {
					t.Fatalf("expected recorder invocation, got %d", len(rec.calls))
				}
				if len(ctrl.transfers) != 0 {
					t.Fatal("no transfer on voicemail branch")
				}
			}
		})
	}
}

func TestCommandFailureSurfaces(t *testing.T) {
	ctrl := &stubController{transferErr: errors.New("provider down")}
	r := newTestRouter(ctrl, stubAvailability{available: true}, &stubRecorder{})

	if _, err := r.HandleIncomingCall(context.Background(), testUser(), "cc-1"); err == nil {
		t.Fatal("expected command failure to surface")
	}
}

func TestAvailabilityErrorSurfaces(t *testing.T) {
	r := newTestRouter(&stubController{}, stubAvailability{err: errors.New("db down")}, &stubRecorder{})
	if _, err := r.HandleIncomingCall(context.Background(), testUser(), "cc-1"); err == nil {
		t.Fatal("expected availability error to surface")
	}
}
