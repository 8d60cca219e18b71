package automation

import (
	"context"
	"strings"
	"time"

	"telephony-backoffice/internal/sms"
	"telephony-backoffice/internal/telephony"
	"telephony-backoffice/internal/templates"
	"telephony-backoffice/internal/users"
	"telephony-backoffice/pkg/logger"
)

// TemplateSource resolves template bodies for sendSms actions.
type TemplateSource interface {
	GetByID(ctx context.Context, id string) (templates.Template, error)
}

// UserSource resolves users for template variables.
type UserSource interface {
	GetByID(ctx context.Context, id string) (users.User, error)
}

// MessageLog records outbound automation messages.
type MessageLog interface {
	Create(ctx context.Context, m sms.Message) (sms.Message, error)
}

// Engine evaluates automations against events and executes their actions.
//
// Matching is OR across an automation's conditions; an automation with no
// conditions never matches. Triggering and action outcomes feed two
// independent counters: RecordTrigger at match time, success/error only
// when an action actually runs.
type Engine struct {
	Repo      Repository
	Schedule  ScheduleStore
	Templates TemplateSource
	Users     UserSource
	Messenger telephony.Messenger
	Messages  MessageLog

	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// InboundSMS is a received message to evaluate.
type InboundSMS struct {
	To   string // the automation-owning provider number
	From string
	Text string
}

// ProcessIncomingSMS evaluates incomingSms and keywordSms automations for
// the dialed number.
func (e *Engine) ProcessIncomingSMS(ctx context.Context, in InboundSMS) (Result, error) {
	if in.To == "" || in.From == "" {
		return Result{}, ErrInvalidArgument
	}
	autos, err := e.Repo.ListActiveByNumber(ctx, in.To, []ConditionType{ConditionIncomingSMS, ConditionKeywordSMS})
	if err != nil {
		return Result{}, err
	}
	res := Result{Processed: true, TriggeredAutomations: []string{}}
	for _, a := range autos {
		if !matchesSMS(a, in.Text) {
			continue
		}
		ectx := EventContext{UserID: a.UserID, From: in.From, To: in.To, MessageText: in.Text}
		e.trigger(ctx, a, ectx)
		res.TriggeredAutomations = append(res.TriggeredAutomations, a.Name)
	}
	res.Total = len(res.TriggeredAutomations)
	return res, nil
}

func matchesSMS(a Automation, text string) bool {
	lower := strings.ToLower(text)
	for _, c := range a.Conditions {
		switch c.Type {
		case ConditionIncomingSMS:
			return true
		case ConditionKeywordSMS:
			for _, kw := range c.Parameters.Keywords {
				if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
					return true
				}
			}
		}
	}
	return false
}

// CallEvent is a call lifecycle fact to evaluate.
type CallEvent struct {
	To   string
	From string

	// Kind is the condition type the event maps to: incomingCall,
	// missedCall or voicemail. Anything else is not processed.
	Kind ConditionType

	DurationSeconds int
}

// ProcessCallEvent evaluates call-triggered automations. Events that map to
// no call condition type return Processed=false without touching storage.
func (e *Engine) ProcessCallEvent(ctx context.Context, in CallEvent) (Result, error) {
	switch in.Kind {
	case ConditionIncomingCall, ConditionMissedCall, ConditionVoicemail:
	default:
		return Result{Processed: false, TriggeredAutomations: []string{}}, nil
	}
	if in.To == "" {
		return Result{}, ErrInvalidArgument
	}
	autos, err := e.Repo.ListActiveByNumber(ctx, in.To, []ConditionType{in.Kind})
	if err != nil {
		return Result{}, err
	}
	callType := map[ConditionType]string{
		ConditionIncomingCall: "incoming",
		ConditionMissedCall:   "missed",
		ConditionVoicemail:    "voicemail",
	}[in.Kind]

	res := Result{Processed: true, TriggeredAutomations: []string{}}
	for _, a := range autos {
		ectx := EventContext{
			UserID:              a.UserID,
			From:                in.From,
			To:                  in.To,
			CallType:            callType,
			CallDurationSeconds: in.DurationSeconds,
		}
		e.trigger(ctx, a, ectx)
		res.TriggeredAutomations = append(res.TriggeredAutomations, a.Name)
	}
	res.Total = len(res.TriggeredAutomations)
	return res, nil
}

// ProcessScheduled fires scheduledTime automations whose configured time
// matches the current minute and whose day list contains today. Called once
// per minute by the scheduler.
func (e *Engine) ProcessScheduled(ctx context.Context) (Result, error) {
	now := e.now()
	hhmm := now.Format("15:04")
	day := now.Weekday().String()

	autos, err := e.Repo.ListActiveByTypes(ctx, []ConditionType{ConditionScheduledTime})
	if err != nil {
		return Result{}, err
	}
	res := Result{Processed: true, TriggeredAutomations: []string{}}
	for _, a := range autos {
		if !matchesSchedule(a, hhmm, day) {
			continue
		}
		ectx := EventContext{UserID: a.UserID, To: a.PhoneNumber}
		e.trigger(ctx, a, ectx)
		res.TriggeredAutomations = append(res.TriggeredAutomations, a.Name)
	}
	res.Total = len(res.TriggeredAutomations)
	return res, nil
}

func matchesSchedule(a Automation, hhmm, day string) bool {
	for _, c := range a.Conditions {
		if c.Type != ConditionScheduledTime || c.Parameters.Time != hhmm {
			continue
		}
		for _, d := range c.Parameters.DaysOfWeek {
			if strings.EqualFold(d, day) {
				return true
			}
		}
	}
	return false
}

// ProcessAvailabilityChange evaluates availability automations for a user
// whose computed status just flipped.
func (e *Engine) ProcessAvailabilityChange(ctx context.Context, userID string, available bool) (Result, error) {
	if userID == "" {
		return Result{}, ErrInvalidArgument
	}
	status := "unavailable"
	if available {
		status = "available"
	}
	autos, err := e.Repo.ListActiveByUser(ctx, userID, []ConditionType{ConditionAvailability})
	if err != nil {
		return Result{}, err
	}
	res := Result{Processed: true, TriggeredAutomations: []string{}}
	for _, a := range autos {
		if !matchesAvailability(a, status) {
			continue
		}
		ectx := EventContext{UserID: a.UserID, To: a.PhoneNumber, AvailabilityStatus: status}
		e.trigger(ctx, a, ectx)
		res.TriggeredAutomations = append(res.TriggeredAutomations, a.Name)
	}
	res.Total = len(res.TriggeredAutomations)
	return res, nil
}

func matchesAvailability(a Automation, status string) bool {
	for _, c := range a.Conditions {
		if c.Type != ConditionAvailability {
			continue
		}
		want := c.Parameters.AvailabilityStatus
		if want == "any" || want == status {
			return true
		}
	}
	return false
}

// trigger records the match and walks the automation's actions. Action
// failures are counted and logged, never propagated: one broken action must
// not block event processing.
func (e *Engine) trigger(ctx context.Context, a Automation, ectx EventContext) {
	log := logger.From(ctx).With("automation_id", a.ID, "user_id", a.UserID)
	if err := e.Repo.RecordTrigger(ctx, a.ID, e.now()); err != nil {
		log.Error("record trigger", "error", err)
	}
	for _, action := range a.Actions {
		if action.Parameters.Delay != nil && action.Parameters.Delay.Duration() > 0 {
			e.deferAction(ctx, a, action, ectx)
			continue
		}
		e.runAndCount(ctx, a.ID, action, ectx)
	}
}

func (e *Engine) deferAction(ctx context.Context, a Automation, action Action, ectx EventContext) {
	log := logger.From(ctx).With("automation_id", a.ID)
	s := ScheduledAction{
		AutomationID: a.ID,
		Action:       action,
		Context:      ectx,
		DueAt:        e.now().Add(action.Parameters.Delay.Duration()),
		Status:       ScheduledPending,
	}
	if _, err := e.Schedule.CreateScheduled(ctx, s); err != nil {
		log.Error("schedule action", "action_type", action.Type, "error", err)
		if ierr := e.Repo.IncrementError(ctx, a.ID); ierr != nil {
			log.Error("increment error count", "error", ierr)
		}
	}
}

func (e *Engine) runAndCount(ctx context.Context, automationID string, action Action, ectx EventContext) {
	log := logger.From(ctx).With("automation_id", automationID, "action_type", action.Type)
	ran, err := e.runAction(ctx, action, ectx)
	switch {
	case err != nil:
		log.Error("action failed", "error", err)
		if ierr := e.Repo.IncrementError(ctx, automationID); ierr != nil {
			log.Error("increment error count", "error", ierr)
		}
	case ran:
		if ierr := e.Repo.IncrementSuccess(ctx, automationID); ierr != nil {
			log.Error("increment success count", "error", ierr)
		}
	default:
		log.Info("action skipped")
	}
}

// runAction executes a single action. ran=false means the action type is a
// recognized no-op and counts as neither success nor error.
func (e *Engine) runAction(ctx context.Context, action Action, ectx EventContext) (ran bool, err error) {
	switch action.Type {
	case ActionSendSMS:
		return true, e.sendSMS(ctx, action.Parameters, ectx)
	case ActionNotify:
		logger.From(ctx).Info("notify",
			"method", action.Parameters.NotifyMethod,
			"users", action.Parameters.NotifyUsers,
			"user_id", ectx.UserID)
		return true, nil
	default:
		return false, nil
	}
}

func (e *Engine) sendSMS(ctx context.Context, p ActionParams, ectx EventContext) error {
	body := p.Message
	if p.TemplateID != "" {
		tmpl, err := e.Templates.GetByID(ctx, p.TemplateID)
		if err != nil {
			return err
		}
		body = tmpl.Content
	}
	if body == "" {
		return ErrInvalidArgument
	}

	vars := templates.Variables{
		Now:                 e.now(),
		Sender:              ectx.From,
		MessageText:         ectx.MessageText,
		CallType:            ectx.CallType,
		CallDurationSeconds: ectx.CallDurationSeconds,
		AvailabilityStatus:  ectx.AvailabilityStatus,
	}
	if e.Users != nil && ectx.UserID != "" {
		if u, err := e.Users.GetByID(ctx, ectx.UserID); err == nil {
			vars.User = u
		}
	}
	text := templates.Render(body, vars)

	recipients := p.Recipients
	if len(recipients) == 0 {
		if ectx.From == "" {
			return ErrInvalidArgument
		}
		recipients = []string{ectx.From}
	}

	var firstErr error
	for _, to := range recipients {
		result, err := e.Messenger.Send(ctx, telephony.SendMessageRequest{
			From: ectx.To,
			To:   to,
			Text: text,
		})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if e.Messages != nil {
			if _, err := e.Messages.Create(ctx, sms.Message{
				UserID:            ectx.UserID,
				ExternalMessageID: result.ID,
				Direction:         sms.DirectionOutbound,
				From:              ectx.To,
				To:                to,
				Text:              text,
				Status:            sms.StatusQueued,
			}); err != nil {
				logger.From(ctx).Error("record outbound message", "error", err)
			}
		}
	}
	return firstErr
}
