package calendar

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPProvider pulls event feeds from the calendar bridge, a sidecar that
// owns the OAuth dance with the real calendar vendors and exposes per-user
// feeds as plain JSON.
type HTTPProvider struct {
	http *resty.Client
}

func NewHTTPProvider(feedBaseURL string) *HTTPProvider {
	c := resty.New().
		SetBaseURL(feedBaseURL).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")
	return &HTTPProvider{http: c}
}

func (p *HTTPProvider) Name() string { return "calendar-bridge" }

type feedEvent struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	AllDay          bool      `json:"all_day"`
	Recurrence      string    `json:"recurrence"`
	Status          string    `json:"status"`
	MakeUnavailable bool      `json:"make_unavailable"`
}

func (p *HTTPProvider) ListUpcomingEvents(ctx context.Context, userID string) ([]Event, error) {
	var feed struct {
		Events []feedEvent `json:"events"`
	}
	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(&feed).
		Get(fmt.Sprintf("/users/%s/events", url.PathEscape(userID)))
	if err != nil {
		return nil, fmt.Errorf("calendar feed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("calendar feed: status %d: %s", resp.StatusCode(), resp.String())
	}

	out := make([]Event, 0, len(feed.Events))
	for _, fe := range feed.Events {
		out = append(out, Event{
			EventID:         fe.ID,
			UserID:          userID,
			Title:           fe.Title,
			StartTime:       fe.StartTime,
			EndTime:         fe.EndTime,
			AllDay:          fe.AllDay,
			Recurrence:      fe.Recurrence,
			Status:          EventStatus(fe.Status),
			MakeUnavailable: fe.MakeUnavailable,
		})
	}
	return out, nil
}
