package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"telephony-backoffice/internal/telephony"
	"telephony-backoffice/internal/templates"
	"telephony-backoffice/internal/users"
)

type stubMessenger struct {
	sent []telephony.SendMessageRequest
	err  error
}

func (m *stubMessenger) Send(_ context.Context, req telephony.SendMessageRequest) (telephony.SendMessageResult, error) {
	if m.err != nil {
		return telephony.SendMessageResult{}, m.err
	}
	m.sent = append(m.sent, req)
	return telephony.SendMessageResult{ID: "msg-1"}, nil
}

type stubTemplates struct {
	byID map[string]templates.Template
}

func (s *stubTemplates) GetByID(_ context.Context, id string) (templates.Template, error) {
	t, ok := s.byID[id]
	if !ok {
		return templates.Template{}, templates.ErrNotFound
	}
	return t, nil
}

type stubUsers struct {
	byID map[string]users.User
}

func (s *stubUsers) GetByID(_ context.Context, id string) (users.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestEngine(repo *MemoryRepository, m *stubMessenger, now time.Time) *Engine {
	return &Engine{
		Repo:      repo,
		Schedule:  repo,
		Templates: &stubTemplates{byID: map[string]templates.Template{}},
		Users:     &stubUsers{byID: map[string]users.User{}},
		Messenger: m,
		Now:       fixedClock(now),
	}
}

func mustCreate(t *testing.T, repo *MemoryRepository, a Automation) Automation {
	t.Helper()
	out, err := repo.Create(context.Background(), a)
	if err != nil {
		t.Fatalf("create automation: %v", err)
	}
	return out
}

func TestProcessIncomingSMSKeywordReply(t *testing.T) {
	repo := NewMemoryRepository()
	messenger := &stubMessenger{}
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(repo, messenger, now)

	a := mustCreate(t, repo, Automation{
		UserID:      "u1",
		Name:        "stop handler",
		IsActive:    true,
		PhoneNumber: "+15550001111",
		Conditions:  []Condition{{Type: ConditionKeywordSMS, Parameters: ConditionParams{Keywords: []string{"stop"}}}},
		Actions:     []Action{{Type: ActionSendSMS, Parameters: ActionParams{Message: "You have been unsubscribed."}}},
	})

	res, err := e.ProcessIncomingSMS(context.Background(), InboundSMS{
		To: "+15550001111", From: "+15557772222", Text: "Please STOP texting me",
	})
	if err != nil {
		t.Fatalf("ProcessIncomingSMS: %v", err)
	}
	if !res.Processed || res.Total != 1 {
		t.Fatalf("got %+v, want processed with 1 trigger", res)
	}
	if len(res.TriggeredAutomations) != 1 || res.TriggeredAutomations[0] != "stop handler" {
		t.Errorf("triggered = %v, want the automation name", res.TriggeredAutomations)
	}
	if len(messenger.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(messenger.sent))
	}
	out := messenger.sent[0]
	if out.From != "+15550001111" || out.To != "+15557772222" {
		t.Errorf("reply from %q to %q, want automation number replying to sender", out.From, out.To)
	}
	if out.Text != "You have been unsubscribed." {
		t.Errorf("text = %q", out.Text)
	}

	got, _ := repo.GetByID(context.Background(), a.ID)
	if got.Stats.TimesTriggered != 1 || got.Stats.SuccessCount != 1 || got.Stats.ErrorCount != 0 {
		t.Errorf("stats = %+v", got.Stats)
	}
	if got.Stats.LastTriggered == nil || !got.Stats.LastTriggered.Equal(now) {
		t.Errorf("last triggered = %v, want %v", got.Stats.LastTriggered, now)
	}
}

func TestProcessIncomingSMSNoKeywordMatch(t *testing.T) {
	repo := NewMemoryRepository()
	messenger := &stubMessenger{}
	e := newTestEngine(repo, messenger, time.Now())

	mustCreate(t, repo, Automation{
		UserID: "u1", Name: "stop handler", IsActive: true, PhoneNumber: "+15550001111",
		Conditions: []Condition{{Type: ConditionKeywordSMS, Parameters: ConditionParams{Keywords: []string{"stop"}}}},
		Actions:    []Action{{Type: ActionSendSMS, Parameters: ActionParams{Message: "bye"}}},
	})

	res, err := e.ProcessIncomingSMS(context.Background(), InboundSMS{
		To: "+15550001111", From: "+15557772222", Text: "hello there",
	})
	if err != nil {
		t.Fatalf("ProcessIncomingSMS: %v", err)
	}
	if res.Total != 0 || len(messenger.sent) != 0 {
		t.Fatalf("got %d triggers, %d sends, want none", res.Total, len(messenger.sent))
	}
}

func TestEmptyConditionsNeverTrigger(t *testing.T) {
	repo := NewMemoryRepository()
	messenger := &stubMessenger{}
	e := newTestEngine(repo, messenger, time.Now())

	mustCreate(t, repo, Automation{
		UserID: "u1", Name: "orphan", IsActive: true, PhoneNumber: "+15550001111",
		Actions: []Action{{Type: ActionSendSMS, Parameters: ActionParams{Message: "should never send"}}},
	})

	res, err := e.ProcessIncomingSMS(context.Background(), InboundSMS{
		To: "+15550001111", From: "+15557772222", Text: "anything",
	})
	if err != nil {
		t.Fatalf("ProcessIncomingSMS: %v", err)
	}
	if res.Total != 0 || len(messenger.sent) != 0 {
		t.Fatalf("automation with no conditions fired")
	}
}

func TestInactiveAutomationIgnored(t *testing.T) {
	repo := NewMemoryRepository()
	messenger := &stubMessenger{}
	e := newTestEngine(repo, messenger, time.Now())

	mustCreate(t, repo, Automation{
		UserID: "u1", Name: "off", IsActive: false, PhoneNumber: "+15550001111",
		Conditions: []Condition{{Type: ConditionIncomingSMS}},
		Actions:    []Action{{Type: ActionSendSMS, Parameters: ActionParams{Message: "hi"}}},
	})

	res, err := e.ProcessIncomingSMS(context.Background(), InboundSMS{
		To: "+15550001111", From: "+15557772222", Text: "hello",
	})
	if err != nil {
		t.Fatalf("ProcessIncomingSMS: %v", err)
	}
	if res.Total != 0 {
		t.Fatalf("inactive automation fired")
	}
}

func TestSendFailureCountsError(t *testing.T) {
	repo := NewMemoryRepository()
	messenger := &stubMessenger{err: errors.New("provider down")}
	e := newTestEngine(repo, messenger, time.Now())

	a := mustCreate(t, repo, Automation{
		UserID: "u1", Name: "auto reply", IsActive: true, PhoneNumber: "+15550001111",
		Conditions: []Condition{{Type: ConditionIncomingSMS}},
		Actions:    []Action{{Type: ActionSendSMS, Parameters: ActionParams{Message: "hi"}}},
	})

	res, err := e.ProcessIncomingSMS(context.Background(), InboundSMS{
		To: "+15550001111", From: "+15557772222", Text: "hello",
	})
	if err != nil {
		t.Fatalf("ProcessIncomingSMS: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("trigger not recorded despite send failure")
	}
	got, _ := repo.GetByID(context.Background(), a.ID)
	if got.Stats.TimesTriggered != 1 || got.Stats.ErrorCount != 1 || got.Stats.SuccessCount != 0 {
		t.Errorf("stats = %+v, want triggered once with one error", got.Stats)
	}
}

func TestTemplateRendering(t *testing.T) {
	repo := NewMemoryRepository()
	messenger := &stubMessenger{}
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	e := newTestEngine(repo, messenger, now)
	e.Templates = &stubTemplates{byID: map[string]templates.Template{
		"tpl-1": {ID: "tpl-1", Content: "Hi, {{user.firstName}} will call {{sender}} back."},
	}}
	e.Users = &stubUsers{byID: map[string]users.User{
		"u1": {ID: "u1", FirstName: "Dana", LastName: "Reyes"},
	}}

	mustCreate(t, repo, Automation{
		UserID: "u1", Name: "auto reply", IsActive: true, PhoneNumber: "+15550001111",
		Conditions: []Condition{{Type: ConditionIncomingSMS}},
		Actions:    []Action{{Type: ActionSendSMS, Parameters: ActionParams{TemplateID: "tpl-1"}}},
	})

	if _, err := e.ProcessIncomingSMS(context.Background(), InboundSMS{
		To: "+15550001111", From: "+15557772222", Text: "call me",
	}); err != nil {
		t.Fatalf("ProcessIncomingSMS: %v", err)
	}
	if len(messenger.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(messenger.sent))
	}
	want := "Hi, Dana will call +15557772222 back."
	if messenger.sent[0].Text != want {
		t.Errorf("text = %q, want %q", messenger.sent[0].Text, want)
	}
}

func TestProcessCallEventMissedCall(t *testing.T) {
	repo := NewMemoryRepository()
	messenger := &stubMessenger{}
	e := newTestEngine(repo, messenger, time.Now())

	mustCreate(t, repo, Automation{
		UserID: "u1", Name: "missed call text", IsActive: true, PhoneNumber: "+15550001111",
		Conditions: []Condition{{Type: ConditionMissedCall}},
		Actions:    []Action{{Type: ActionSendSMS, Parameters: ActionParams{Message: "Sorry we missed your {{call.type}} call"}}},
	})

	res, err := e.ProcessCallEvent(context.Background(), CallEvent{
		To: "+15550001111", From: "+15557772222", Kind: ConditionMissedCall,
	})
	if err != nil {
		t.Fatalf("ProcessCallEvent: %v", err)
	}
	if res.Total != 1 || len(messenger.sent) != 1 {
		t.Fatalf("got %d triggers, %d sends", res.Total, len(messenger.sent))
	}
	if messenger.sent[0].Text != "Sorry we missed your missed call" {
		t.Errorf("text = %q", messenger.sent[0].Text)
	}
}

func TestProcessCallEventUnmappedKind(t *testing.T) {
	repo := NewMemoryRepository()
	e := newTestEngine(repo, &stubMessenger{}, time.Now())

	res, err := e.ProcessCallEvent(context.Background(), CallEvent{
		To: "+15550001111", Kind: ConditionType("ringGroup"),
	})
	if err != nil {
		t.Fatalf("ProcessCallEvent: %v", err)
	}
	if res.Processed {
		t.Fatalf("unmapped event kind reported as processed")
	}
}

func TestProcessScheduledMatchesMinuteAndDay(t *testing.T) {
	repo := NewMemoryRepository()
	messenger := &stubMessenger{}
	// 2026-03-02 is a Monday.
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	e := newTestEngine(repo, messenger, now)

	mustCreate(t, repo, Automation{
		UserID: "u1", Name: "morning blast", IsActive: true, PhoneNumber: "+15550001111",
		Conditions: []Condition{{Type: ConditionScheduledTime, Parameters: ConditionParams{
			Time: "09:30", DaysOfWeek: []string{"Monday", "Wednesday"},
		}}},
		Actions: []Action{{Type: ActionSendSMS, Parameters: ActionParams{
			Message: "Good morning", Recipients: []string{"+15559993333"},
		}}},
	})
	mustCreate(t, repo, Automation{
		UserID: "u1", Name: "tuesday only", IsActive: true, PhoneNumber: "+15550001111",
		Conditions: []Condition{{Type: ConditionScheduledTime, Parameters: ConditionParams{
			Time: "09:30", DaysOfWeek: []string{"Tuesday"},
		}}},
		Actions: []Action{{Type: ActionSendSMS, Parameters: ActionParams{
			Message: "wrong day", Recipients: []string{"+15559993333"},
		}}},
	})

	res, err := e.ProcessScheduled(context.Background())
	if err != nil {
		t.Fatalf("ProcessScheduled: %v", err)
	}
	if res.Total != 1 || len(messenger.sent) != 1 {
		t.Fatalf("got %d triggers, %d sends, want 1 and 1", res.Total, len(messenger.sent))
	}
	if messenger.sent[0].To != "+15559993333" {
		t.Errorf("sent to %q, want configured recipient", messenger.sent[0].To)
	}

	// A minute later the window has passed.
	messenger.sent = nil
	e.Now = fixedClock(now.Add(time.Minute))
	res, err = e.ProcessScheduled(context.Background())
	if err != nil {
		t.Fatalf("ProcessScheduled: %v", err)
	}
	if res.Total != 0 || len(messenger.sent) != 0 {
		t.Fatalf("scheduled automation fired outside its minute")
	}
}

func TestProcessAvailabilityChange(t *testing.T) {
	repo := NewMemoryRepository()
	messenger := &stubMessenger{}
	e := newTestEngine(repo, messenger, time.Now())

	mustCreate(t, repo, Automation{
		UserID: "u1", Name: "on unavailable", IsActive: true, PhoneNumber: "+15550001111",
		Conditions: []Condition{{Type: ConditionAvailability, Parameters: ConditionParams{AvailabilityStatus: "unavailable"}}},
		Actions: []Action{{Type: ActionSendSMS, Parameters: ActionParams{
			Message: "now {{availability.status}}", Recipients: []string{"+15559993333"},
		}}},
	})
	mustCreate(t, repo, Automation{
		UserID: "u1", Name: "on any", IsActive: true, PhoneNumber: "+15550001111",
		Conditions: []Condition{{Type: ConditionAvailability, Parameters: ConditionParams{AvailabilityStatus: "any"}}},
		Actions:    []Action{{Type: ActionNotify, Parameters: ActionParams{NotifyMethod: "email", NotifyUsers: []string{"u1"}}}},
	})

	res, err := e.ProcessAvailabilityChange(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("ProcessAvailabilityChange: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("got %d triggers, want 2 (exact status + any)", res.Total)
	}
	if len(messenger.sent) != 1 || messenger.sent[0].Text != "now unavailable" {
		t.Fatalf("sends = %+v", messenger.sent)
	}

	// Flip to available: only the "any" automation should match now.
	res, err = e.ProcessAvailabilityChange(context.Background(), "u1", true)
	if err != nil {
		t.Fatalf("ProcessAvailabilityChange: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("got %d triggers, want 1", res.Total)
	}
}

func TestUnknownActionTypeSkipped(t *testing.T) {
	repo := NewMemoryRepository()
	messenger := &stubMessenger{}
	e := newTestEngine(repo, messenger, time.Now())

	a := mustCreate(t, repo, Automation{
		UserID: "u1", Name: "tagger", IsActive: true, PhoneNumber: "+15550001111",
		Conditions: []Condition{{Type: ConditionIncomingSMS}},
		Actions:    []Action{{Type: ActionTag, Parameters: ActionParams{Message: "vip"}}},
	})

	res, err := e.ProcessIncomingSMS(context.Background(), InboundSMS{
		To: "+15550001111", From: "+15557772222", Text: "hi",
	})
	if err != nil {
		t.Fatalf("ProcessIncomingSMS: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("trigger not recorded")
	}
	got, _ := repo.GetByID(context.Background(), a.ID)
	if got.Stats.SuccessCount != 0 || got.Stats.ErrorCount != 0 {
		t.Errorf("skipped action moved outcome counters: %+v", got.Stats)
	}
}
