package calendar

import "context"

// Provider is the provider-agnostic calendar capability.
//
// Rules:
//   - No vendor SDK calls outside calendar adapters.
//   - Token refresh is the adapter's concern; callers never see OAuth mechanics.
//   - All providers (Google, Microsoft, Apple, CalDAV, Calendly, iCal) are
//     treated uniformly through this interface.
type Provider interface {
	Name() string

	// ListUpcomingEvents returns the user's upcoming events, already mapped
	// to the internal Event shape.
	ListUpcomingEvents(ctx context.Context, userID string) ([]Event, error)
}
