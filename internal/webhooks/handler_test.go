package webhooks

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"telephony-backoffice/internal/automation"
	"telephony-backoffice/internal/callrouter"
	"telephony-backoffice/internal/calls"
	"telephony-backoffice/internal/config"
	"telephony-backoffice/internal/sms"
	"telephony-backoffice/internal/telephony"
	"telephony-backoffice/internal/users"
	"telephony-backoffice/internal/voicemail"
)

type command struct {
	name string
	arg  string
}

type stubController struct {
	commands []command
}

func (s *stubController) Answer(_ context.Context, id string) error {
	s.commands = append(s.commands, command{"answer", id})
	return nil
}

func (s *stubController) Transfer(_ context.Context, id, to string, _ int) error {
	s.commands = append(s.commands, command{"transfer", to})
	return nil
}

func (s *stubController) PlayAudio(_ context.Context, id, url string) error {
	s.commands = append(s.commands, command{"play", url})
	return nil
}

func (s *stubController) Speak(_ context.Context, id, text, _, _ string) error {
	s.commands = append(s.commands, command{"speak", text})
	return nil
}

func (s *stubController) Gather(_ context.Context, id string, _, _ int) error {
	s.commands = append(s.commands, command{"gather", id})
	return nil
}

func (s *stubController) StartRecording(_ context.Context, id string, _ telephony.RecordingRequest) error {
	s.commands = append(s.commands, command{"record", id})
	return nil
}

func (s *stubController) names() []string {
	out := make([]string, 0, len(s.commands))
	for _, c := range s.commands {
		out = append(out, c.name)
	}
	return out
}

type stubAvail struct{ available bool }

func (s stubAvail) IsAvailable(context.Context, users.User) (bool, error) {
	return s.available, nil
}

type stubSender struct {
	sent []telephony.SendMessageRequest
}

func (s *stubSender) Send(_ context.Context, req telephony.SendMessageRequest) (telephony.SendMessageResult, error) {
	s.sent = append(s.sent, req)
	return telephony.SendMessageResult{ID: fmt.Sprintf("out-%d", len(s.sent))}, nil
}

type fixture struct {
	handler    *Handler
	controller *stubController
	sender     *stubSender
	userRepo   *users.MemoryRepo
	callRepo   *calls.MemoryRepo
	vmRepo     *voicemail.MemoryRepo
	smsRepo    *sms.MemoryRepo
	autoRepo   *automation.MemoryRepository
	router     *gin.Engine
}

func newFixture(t *testing.T, available bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		controller: &stubController{},
		sender:     &stubSender{},
		userRepo:   users.NewMemoryRepo(),
		callRepo:   calls.NewMemoryRepo(),
		vmRepo:     voicemail.NewMemoryRepo(),
		smsRepo:    sms.NewMemoryRepo(),
		autoRepo:   automation.NewMemoryRepository(),
	}
	f.userRepo.Put(users.User{
		ID:             "u1",
		FirstName:      "Dana",
		AssignedNumber: "+15550001111",
		ForwardNumber:  "+15551230000",
	})

	callSvc := calls.NewService(f.callRepo)
	recorder := voicemail.NewRecorder(f.controller, config.GreetingsConfig{
		AssetBaseURL: "https://assets.example.com/greetings",
		Voice:        "female",
		Locale:       "en-US",
	})
	recorder.Sleep = func(time.Duration) {}

	engine := &automation.Engine{
		Repo:      f.autoRepo,
		Schedule:  f.autoRepo,
		Messenger: f.sender,
		Messages:  f.smsRepo,
	}

	f.handler = &Handler{
		Users:      f.userRepo,
		Calls:      callSvc,
		Router:     callrouter.New(f.controller, stubAvail{available}, recorder, "+15559990000", "https://assets.example.com/prompts/unavailable.mp3"),
		Voicemails: f.vmRepo,
		Messages:   f.smsRepo,
		Engine:     engine,
	}

	f.router = gin.New()
	f.router.POST("/webhooks/telnyx", f.handler.HandleTelnyx)
	return f
}

func (f *fixture) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/telnyx", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	return w
}

func event(id, eventType, payload string) string {
	return fmt.Sprintf(`{"data":{"id":%q,"event_type":%q,"occurred_at":"2026-03-02T10:00:00Z","payload":%s}}`, id, eventType, payload)
}

func TestInboundCallUnavailableToVoicemail(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	w := f.post(t, event("ev1", "call.initiated",
		`{"call_control_id":"cc1","from":"+15557772222","to":"+15550001111","direction":"incoming"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	want := []string{"answer", "play", "gather"}
	if got := f.controller.names(); len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("commands = %v, want %v", got, want)
	}

	// Caller waits out the gather: voicemail.
	f.controller.commands = nil
	f.post(t, event("ev2", "call.gather.ended", `{"call_control_id":"cc1","digits":"","status":"timeout"}`))
	if got := f.controller.names(); len(got) != 2 || got[0] != "play" || got[1] != "record" {
		t.Fatalf("commands = %v, want [play record]", got)
	}
	if f.controller.commands[0].arg != "https://assets.example.com/greetings/Dana%20Voicemail.mp3" {
		t.Errorf("greeting url = %q", f.controller.commands[0].arg)
	}

	c, err := f.callRepo.GetByExternalID(ctx, "cc1")
	if err != nil {
		t.Fatalf("call not recorded: %v", err)
	}
	if c.Status != calls.StatusVoicemail {
		t.Errorf("call status = %q, want voicemail", c.Status)
	}

	f.post(t, event("ev3", "call.hangup", `{"call_control_id":"cc1","from":"+15557772222","to":"+15550001111","hangup_cause":"normal_clearing"}`))

	f.post(t, event("ev4", "call.recording.saved",
		`{"call_control_id":"cc1","recording_urls":{"mp3":"https://rec.example.com/cc1.mp3"},"duration_secs":12}`))

	vms, err := f.vmRepo.ListByUser(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(vms) != 1 {
		t.Fatalf("got %d voicemails, want 1", len(vms))
	}
	vm := vms[0]
	if vm.RecordingURL != "https://rec.example.com/cc1.mp3" || vm.DurationSeconds != 12 || !vm.IsNew {
		t.Errorf("voicemail = %+v", vm)
	}

	// Redelivered recording event must not duplicate the voicemail.
	f.post(t, event("ev5", "call.recording.saved",
		`{"call_control_id":"cc1","recording_urls":{"mp3":"https://rec.example.com/cc1.mp3"},"duration_secs":12}`))
	vms, _ = f.vmRepo.ListByUser(ctx, "u1", 10)
	if len(vms) != 1 {
		t.Fatalf("redelivery duplicated the voicemail")
	}
}

func TestInboundCallForwardedWhenAvailable(t *testing.T) {
	f := newFixture(t, true)

	f.post(t, event("ev1", "call.initiated",
		`{"call_control_id":"cc1","from":"+15557772222","to":"+15550001111","direction":"incoming"}`))

	got := f.controller.names()
	if len(got) != 2 || got[0] != "answer" || got[1] != "transfer" {
		t.Fatalf("commands = %v, want [answer transfer]", got)
	}
	if f.controller.commands[1].arg != "+15551230000" {
		t.Errorf("transferred to %q, want user's forward number", f.controller.commands[1].arg)
	}

	c, err := f.callRepo.GetByExternalID(context.Background(), "cc1")
	if err != nil {
		t.Fatalf("call not recorded: %v", err)
	}
	if c.Status != calls.StatusForwarded {
		t.Errorf("call status = %q, want forwarded", c.Status)
	}
}

func TestGatherDigitTwoForwardsToCentral(t *testing.T) {
	f := newFixture(t, false)

	f.post(t, event("ev1", "call.initiated",
		`{"call_control_id":"cc1","from":"+15557772222","to":"+15550001111","direction":"incoming"}`))
	f.controller.commands = nil

	f.post(t, event("ev2", "call.gather.ended", `{"call_control_id":"cc1","digits":"2","status":"valid"}`))
	got := f.controller.names()
	if len(got) != 1 || got[0] != "transfer" {
		t.Fatalf("commands = %v, want [transfer]", got)
	}
	if f.controller.commands[0].arg != "+15559990000" {
		t.Errorf("transferred to %q, want central number", f.controller.commands[0].arg)
	}
}

func TestMissedCallTriggersAutomation(t *testing.T) {
	f := newFixture(t, false)

	if _, err := f.autoRepo.Create(context.Background(), automation.Automation{
		UserID: "u1", Name: "missed call text", IsActive: true, PhoneNumber: "+15550001111",
		Conditions: []automation.Condition{{Type: automation.ConditionMissedCall}},
		Actions: []automation.Action{{Type: automation.ActionSendSMS, Parameters: automation.ActionParams{
			Message: "Sorry we missed you",
		}}},
	}); err != nil {
		t.Fatalf("create automation: %v", err)
	}

	f.post(t, event("ev1", "call.initiated",
		`{"call_control_id":"cc1","from":"+15557772222","to":"+15550001111","direction":"incoming"}`))
	f.post(t, event("ev2", "call.hangup",
		`{"call_control_id":"cc1","from":"+15557772222","to":"+15550001111","hangup_cause":"unanswered"}`))

	if len(f.sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(f.sender.sent))
	}
	out := f.sender.sent[0]
	if out.To != "+15557772222" || out.Text != "Sorry we missed you" {
		t.Errorf("sent %+v", out)
	}

	c, _ := f.callRepo.GetByExternalID(context.Background(), "cc1")
	if c.Status != calls.StatusNoAnswer {
		t.Errorf("call status = %q, want no-answer", c.Status)
	}
}

func TestMessageReceivedStoredAndAutoReplied(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if _, err := f.autoRepo.Create(ctx, automation.Automation{
		UserID: "u1", Name: "stop handler", IsActive: true, PhoneNumber: "+15550001111",
		Conditions: []automation.Condition{{Type: automation.ConditionKeywordSMS, Parameters: automation.ConditionParams{
			Keywords: []string{"stop"},
		}}},
		Actions: []automation.Action{{Type: automation.ActionSendSMS, Parameters: automation.ActionParams{
			Message: "You have been unsubscribed.",
		}}},
	}); err != nil {
		t.Fatalf("create automation: %v", err)
	}

	f.post(t, event("ev1", "message.received",
		`{"id":"m1","from":{"phone_number":"+15557772222"},"to":[{"phone_number":"+15550001111"}],"text":"STOP please"}`))

	if len(f.sender.sent) != 1 || f.sender.sent[0].To != "+15557772222" {
		t.Fatalf("auto reply not sent: %+v", f.sender.sent)
	}

	msgs, err := f.smsRepo.ListByUser(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	var inbound, outbound int
	for _, m := range msgs {
		switch m.Direction {
		case sms.DirectionInbound:
			inbound++
		case sms.DirectionOutbound:
			outbound++
		}
	}
	if inbound != 1 || outbound != 1 {
		t.Fatalf("got %d inbound, %d outbound messages, want 1 each", inbound, outbound)
	}
}

func TestUnknownEventAcknowledged(t *testing.T) {
	f := newFixture(t, false)
	w := f.post(t, event("ev1", "call.machine.detection.ended", `{"call_control_id":"cc1"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for unknown event", w.Code)
	}
}

func TestMalformedPayloadAcknowledged(t *testing.T) {
	f := newFixture(t, false)
	w := f.post(t, `{"data":{"id":"ev1"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for unusable payload", w.Code)
	}
}

type stubDeduper struct {
	seen map[string]bool
	err  error
}

func (d *stubDeduper) FirstSeen(_ context.Context, key string, _ time.Duration) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func TestDuplicateDeliverySuppressed(t *testing.T) {
	f := newFixture(t, false)
	f.handler.Dedupe = &stubDeduper{}
	ctx := context.Background()

	body := event("ev1", "message.received",
		`{"id":"msg1","from":{"phone_number":"+15557772222"},"to":[{"phone_number":"+15550001111"}],"text":"hi"}`)

	w := f.post(t, body)
	if w.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d", w.Code)
	}
	w = f.post(t, body)
	if w.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d, want 200 ack", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("duplicate")) {
		t.Errorf("redelivery body = %s, want duplicate marker", w.Body.String())
	}

	msgs, err := f.smsRepo.ListByUser(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("stored %d messages, want 1 after redelivery", len(msgs))
	}

	// A fresh event id still goes through.
	f.post(t, event("ev2", "message.received",
		`{"id":"msg2","from":{"phone_number":"+15557772222"},"to":[{"phone_number":"+15550001111"}],"text":"again"}`))
	msgs, _ = f.smsRepo.ListByUser(ctx, "u1", 10)
	if len(msgs) != 2 {
		t.Fatalf("stored %d messages, want 2", len(msgs))
	}
}

func TestDedupeFailureProcessesEvent(t *testing.T) {
	f := newFixture(t, false)
	f.handler.Dedupe = &stubDeduper{err: fmt.Errorf("redis down")}
	ctx := context.Background()

	w := f.post(t, event("ev1", "message.received",
		`{"id":"msg1","from":{"phone_number":"+15557772222"},"to":[{"phone_number":"+15550001111"}],"text":"hi"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	msgs, err := f.smsRepo.ListByUser(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("stored %d messages, want event processed when dedupe store is down", len(msgs))
	}
}

func TestSignatureVerification(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	f := newFixture(t, false)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	f.handler.PublicKey = base64.StdEncoding.EncodeToString(pub)
	f.handler.Now = func() time.Time { return now }

	body := event("ev1", "call.answered", `{"call_control_id":"cc1"}`)
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := ed25519.Sign(priv, []byte(ts+"|"+body))

	send := func(signature, timestamp string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhooks/telnyx", bytes.NewBufferString(body))
		req.Header.Set("Telnyx-Signature-Ed25519", signature)
		req.Header.Set("Telnyx-Timestamp", timestamp)
		f.router.ServeHTTP(w, req)
		return w.Code
	}

	if code := send(base64.StdEncoding.EncodeToString(sig), ts); code != http.StatusOK {
		t.Errorf("valid signature rejected: %d", code)
	}
	if code := send(base64.StdEncoding.EncodeToString(sig), strconv.FormatInt(now.Add(-time.Hour).Unix(), 10)); code != http.StatusUnauthorized {
		t.Errorf("stale timestamp accepted: %d", code)
	}
	tampered := ed25519.Sign(priv, []byte(ts+"|tampered"))
	if code := send(base64.StdEncoding.EncodeToString(tampered), ts); code != http.StatusUnauthorized {
		t.Errorf("bad signature accepted: %d", code)
	}
	if code := send("not-base64!", ts); code != http.StatusUnauthorized {
		t.Errorf("garbage signature accepted: %d", code)
	}
}
