package calls

import (
	"context"
	"errors"
	"time"
)

// Service applies webhook-driven lifecycle transitions to call records.
//
// Writes are last-write-wins per record. Two webhooks racing on the same
// call resolve in delivery order with no version check.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) RecordInbound(ctx context.Context, userID, externalCallID, from, to string, occurredAt time.Time) (Call, error) {
	if occurredAt.IsZero() {
		occurredAt = s.clock().UTC()
	}
	return s.repo.Create(ctx, Call{
		UserID:         userID,
		ExternalCallID: externalCallID,
		Direction:      DirectionInbound,
		From:           from,
		To:             to,
		Status:         StatusInitiated,
		StartTime:      occurredAt,
	})
}

func (s *Service) RecordAnswered(ctx context.Context, externalCallID string) error {
	c, err := s.repo.GetByExternalID(ctx, externalCallID)
	if err != nil {
		return err
	}
	// A call already parked in voicemail stays there; the answer event for
	// the recording leg is not a state change.
	if c.Status == StatusVoicemail {
		return nil
	}
	return s.repo.UpdateStatus(ctx, externalCallID, StatusAnswered)
}

func (s *Service) RecordHangup(ctx context.Context, externalCallID, hangupCause string, occurredAt time.Time) error {
	c, err := s.repo.GetByExternalID(ctx, externalCallID)
	if err != nil {
		return err
	}
	if occurredAt.IsZero() {
		occurredAt = s.clock().UTC()
	}

	status := StatusCompleted
	switch {
	case c.Status == StatusVoicemail:
		status = StatusVoicemail
	// Telnyx reports a ring-out either as "unanswered" or as "timeout"
	// depending on which leg gave up first; both mean nobody picked up.
	case hangupCause == "unanswered" || hangupCause == "timeout":
		status = StatusNoAnswer
	case hangupCause == "user_busy":
		status = StatusBusy
	case hangupCause == "call_rejected":
		status = StatusFailed
	}

	duration := 0
	if !c.StartTime.IsZero() && occurredAt.After(c.StartTime) {
		duration = int(occurredAt.Sub(c.StartTime) / time.Second)
	}
	return s.repo.MarkEnded(ctx, externalCallID, status, occurredAt, duration)
}

// RecordRecordingSaved attaches a saved recording and reports whether it is a
// voicemail (the call was parked in voicemail when recording started).
func (s *Service) RecordRecordingSaved(ctx context.Context, externalCallID, url string) (Call, bool, error) {
	c, err := s.repo.GetByExternalID(ctx, externalCallID)
	if err != nil {
		return Call{}, false, err
	}
	if c.Status == StatusVoicemail {
		if err := s.repo.SetVoicemailURL(ctx, externalCallID, url); err != nil {
			return Call{}, false, err
		}
		c.VoicemailURL = url
		return c, true, nil
	}
	if err := s.repo.SetRecordingURL(ctx, externalCallID, url); err != nil {
		return Call{}, false, err
	}
	c.RecordingURL = url
	return c, false, nil
}

// MarkVoicemail parks the call in voicemail status; set by the router when it
// invokes the recorder.
func (s *Service) MarkVoicemail(ctx context.Context, externalCallID string) error {
	err := s.repo.UpdateStatus(ctx, externalCallID, StatusVoicemail)
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Service) MarkForwarded(ctx context.Context, externalCallID string) error {
	return s.repo.UpdateStatus(ctx, externalCallID, StatusForwarded)
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]Call, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *Service) GetByExternalID(ctx context.Context, externalCallID string) (Call, error) {
	return s.repo.GetByExternalID(ctx, externalCallID)
}
