package calendar

import (
	"context"
	"time"
)

// Event is the remote calendar's view of a booked appointment.
type Event struct {
	ID       string
	HTMLLink string
}

// EventInput describes an event to create on a remote calendar.
type EventInput struct {
	Start       time.Time
	Duration    time.Duration
	Summary     string
	Description string
	Timezone    string
}

// Gateway abstracts the remote calendar backend. The remote calendar is the
// source of truth for booking state: local records are only written after
// gateway calls succeed.
type Gateway interface {
	// IsFree reports whether the span [start, start+duration) has no events
	// on the given calendar.
	IsFree(ctx context.Context, calendarID string, start time.Time, duration time.Duration) (bool, error)

	// CreateEvent books the span and returns the remote event.
	CreateEvent(ctx context.Context, calendarID string, in EventInput) (*Event, error)

	// DeleteEvent removes an event. Deleting an event that is already gone
	// is not an error.
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
