package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"telephony-backoffice/internal/automation"
	"telephony-backoffice/internal/callrouter"
	"telephony-backoffice/internal/calls"
	"telephony-backoffice/internal/sms"
	"telephony-backoffice/internal/telephony"
	"telephony-backoffice/internal/users"
	"telephony-backoffice/internal/voicemail"
	"telephony-backoffice/pkg/logger"
	"telephony-backoffice/pkg/utils"
)

const dedupeTTL = 24 * time.Hour

// Deduper reports whether a delivery key is being seen for the first time.
type Deduper interface {
	FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisDeduper suppresses redeliveries via an atomic SET NX in Redis.
type RedisDeduper struct {
	RDB *redis.Client
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return utils.FirstSeen(ctx, d.RDB, key, ttl)
}

// Handler is the provider webhook ingress. It translates events into
// service calls and always acknowledges with 200 once the payload is
// authenticated: a non-2xx makes the provider redeliver, and redelivering
// an event we failed to process is rarely what we want.
type Handler struct {
	Users      users.Repository
	Calls      *calls.Service
	Router     *callrouter.Router
	Voicemails voicemail.Repository
	Messages   sms.Repository
	Engine     *automation.Engine

	// Dedupe suppresses redeliveries by event id; nil disables dedupe.
	Dedupe Deduper

	// PublicKey is the base64 webhook signing key; empty disables
	// verification (local development only).
	PublicKey string

	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// HandleTelnyx is POST /webhooks/telnyx.
func (h *Handler) HandleTelnyx(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.From(ctx)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body"})
		return
	}

	if h.PublicKey != "" {
		sig := c.GetHeader("Telnyx-Signature-Ed25519")
		ts := c.GetHeader("Telnyx-Timestamp")
		if !verifySignature(h.PublicKey, sig, ts, body, h.now()) {
			log.Warn("webhook signature rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	ev, err := telephony.ParseEvent(body)
	if err != nil {
		log.Warn("unparseable webhook payload", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	log = log.With("event_id", ev.ID, "event_type", ev.Type)

	if h.Dedupe != nil && ev.ID != "" {
		first, err := h.Dedupe.FirstSeen(ctx, "webhook:telnyx:"+ev.ID, dedupeTTL)
		if err != nil {
			// Fail open: double processing is absorbed by idempotent writes.
			log.Error("webhook dedupe check", "error", err)
		} else if !first {
			c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
			return
		}
	}

	switch ev.Type {
	case telephony.EventCallInitiated:
		h.callInitiated(c, ev)
	case telephony.EventCallAnswered:
		h.callAnswered(c, ev)
	case telephony.EventCallHangup:
		h.callHangup(c, ev)
	case telephony.EventGatherEnded:
		h.gatherEnded(c, ev)
	case telephony.EventRecordingSaved:
		h.recordingSaved(c, ev)
	case telephony.EventMessageReceived:
		h.messageReceived(c, ev)
	case telephony.EventMessageFinalized:
		h.messageFinalized(c, ev)
	default:
		log.Info("unhandled webhook event", "raw_type", ev.RawType)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) callInitiated(c *gin.Context, ev telephony.Event) {
	ctx := c.Request.Context()
	p := ev.CallInitiated
	log := logger.From(ctx).With("call_control_id", p.CallControlID, "to", p.To)

	if p.Direction != "" && p.Direction != "incoming" {
		return
	}

	u, err := h.Users.GetByAssignedNumber(ctx, p.To)
	if errors.Is(err, users.ErrNotFound) {
		log.Info("call to unassigned number")
		return
	}
	if err != nil {
		log.Error("resolve user", "error", err)
		return
	}

	if _, err := h.Calls.RecordInbound(ctx, u.ID, p.CallControlID, p.From, p.To, ev.OccurredAt); err != nil {
		log.Error("record inbound call", "error", err)
	}

	decision, err := h.Router.HandleIncomingCall(ctx, u, p.CallControlID)
	if err != nil {
		log.Error("route inbound call", "error", err)
	} else {
		log.Info("call routed", "action", decision.Action, "detail", decision.Detail, "reason", decision.Reason)
		h.recordDecision(c, p.CallControlID, decision)
	}

	if _, err := h.Engine.ProcessCallEvent(ctx, automation.CallEvent{
		To: p.To, From: p.From, Kind: automation.ConditionIncomingCall,
	}); err != nil {
		log.Error("incoming call automations", "error", err)
	}
}

func (h *Handler) callAnswered(c *gin.Context, ev telephony.Event) {
	ctx := c.Request.Context()
	p := ev.CallAnswered
	if err := h.Calls.RecordAnswered(ctx, p.CallControlID); err != nil && !errors.Is(err, calls.ErrNotFound) {
		logger.From(ctx).Error("record answered", "call_control_id", p.CallControlID, "error", err)
	}
}

func (h *Handler) callHangup(c *gin.Context, ev telephony.Event) {
	ctx := c.Request.Context()
	p := ev.CallHangup
	log := logger.From(ctx).With("call_control_id", p.CallControlID)

	if err := h.Calls.RecordHangup(ctx, p.CallControlID, p.HangupCause, ev.OccurredAt); err != nil && !errors.Is(err, calls.ErrNotFound) {
		log.Error("record hangup", "error", err)
	}

	if p.HangupCause == "unanswered" || p.HangupCause == "timeout" {
		if _, err := h.Engine.ProcessCallEvent(ctx, automation.CallEvent{
			To: p.To, From: p.From, Kind: automation.ConditionMissedCall,
		}); err != nil {
			log.Error("missed call automations", "error", err)
		}
	}
}

func (h *Handler) gatherEnded(c *gin.Context, ev telephony.Event) {
	ctx := c.Request.Context()
	p := ev.GatherEnded
	log := logger.From(ctx).With("call_control_id", p.CallControlID)

	// Caller hung up during the gather; the hangup event handles the record.
	if p.Status == "call_hangup" {
		return
	}

	call, err := h.Calls.GetByExternalID(ctx, p.CallControlID)
	if err != nil {
		log.Error("resolve call for gather", "error", err)
		return
	}
	u, err := h.Users.GetByID(ctx, call.UserID)
	if err != nil {
		log.Error("resolve user for gather", "error", err)
		return
	}

	decision, err := h.Router.HandleUnavailableDTMF(ctx, u, p.CallControlID, p.Digits)
	if err != nil {
		log.Error("route gathered digits", "digits", p.Digits, "error", err)
		return
	}
	log.Info("dtmf routed", "action", decision.Action, "reason", decision.Reason)
	h.recordDecision(c, p.CallControlID, decision)
}

func (h *Handler) recordDecision(c *gin.Context, callControlID string, d callrouter.Decision) {
	ctx := c.Request.Context()
	var err error
	switch d.Action {
	case callrouter.ActionVoicemail:
		err = h.Calls.MarkVoicemail(ctx, callControlID)
	case callrouter.ActionForwarded, callrouter.ActionRoutedToAgent, callrouter.ActionForwardedToCentral:
		err = h.Calls.MarkForwarded(ctx, callControlID)
	}
	if err != nil && !errors.Is(err, calls.ErrNotFound) {
		logger.From(ctx).Error("record routing outcome", "call_control_id", callControlID, "action", d.Action, "error", err)
	}
}

func (h *Handler) recordingSaved(c *gin.Context, ev telephony.Event) {
	ctx := c.Request.Context()
	p := ev.RecordingSaved
	log := logger.From(ctx).With("call_control_id", p.CallControlID)

	url := p.RecordingURLs.MP3
	if url == "" {
		url = p.RecordingURLs.WAV
	}

	call, isVoicemail, err := h.Calls.RecordRecordingSaved(ctx, p.CallControlID, url)
	if err != nil {
		log.Error("record saved recording", "error", err)
		return
	}
	if !isVoicemail {
		return
	}

	_, created, err := h.Voicemails.CreateOnce(ctx, voicemail.Voicemail{
		UserID:          call.UserID,
		ExternalCallID:  call.ExternalCallID,
		From:            call.From,
		To:              call.To,
		DurationSeconds: p.DurationSecs,
		RecordingURL:    url,
		IsNew:           true,
	})
	if err != nil {
		log.Error("store voicemail", "error", err)
		return
	}
	if !created {
		return
	}

	if _, err := h.Engine.ProcessCallEvent(ctx, automation.CallEvent{
		To:              call.To,
		From:            call.From,
		Kind:            automation.ConditionVoicemail,
		DurationSeconds: p.DurationSecs,
	}); err != nil {
		log.Error("voicemail automations", "error", err)
	}
}

func (h *Handler) messageReceived(c *gin.Context, ev telephony.Event) {
	ctx := c.Request.Context()
	p := ev.MessageReceived
	log := logger.From(ctx).With("message_id", p.MessageID, "to", p.To)

	var userID string
	u, err := h.Users.GetByAssignedNumber(ctx, p.To)
	switch {
	case err == nil:
		userID = u.ID
	case errors.Is(err, users.ErrNotFound):
		log.Info("message to unassigned number")
	default:
		log.Error("resolve user", "error", err)
	}

	if _, err := h.Messages.Create(ctx, sms.Message{
		UserID:            userID,
		ExternalMessageID: p.MessageID,
		Direction:         sms.DirectionInbound,
		From:              p.From,
		To:                p.To,
		Text:              p.Text,
		Status:            sms.StatusReceived,
	}); err != nil {
		log.Error("record inbound message", "error", err)
	}

	if _, err := h.Engine.ProcessIncomingSMS(ctx, automation.InboundSMS{
		To: p.To, From: p.From, Text: p.Text,
	}); err != nil {
		log.Error("incoming sms automations", "error", err)
	}
}

func (h *Handler) messageFinalized(c *gin.Context, ev telephony.Event) {
	ctx := c.Request.Context()
	p := ev.MessageFinalized

	status := sms.StatusQueued
	switch p.Status {
	case "delivered":
		status = sms.StatusDelivered
	case "sending_failed", "delivery_failed", "failed":
		status = sms.StatusFailed
	}
	if err := h.Messages.UpdateStatusByExternalID(ctx, p.MessageID, status); err != nil && !errors.Is(err, sms.ErrNotFound) {
		logger.From(ctx).Error("update message status", "message_id", p.MessageID, "error", err)
	}
}
