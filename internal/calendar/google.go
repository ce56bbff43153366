package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleGateway implements Gateway on the Google Calendar v3 API using a
// service account.
type GoogleGateway struct {
	svc *gcal.Service
}

// NewGoogleGateway builds a gateway authenticated with the given service
// account credentials file. Extra client options (endpoint overrides for
// tests) are appended after the defaults.
func NewGoogleGateway(ctx context.Context, credentialsFile string, extra ...option.ClientOption) (*GoogleGateway, error) {
	opts := []option.ClientOption{option.WithScopes(gcal.CalendarScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, extra...)

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar: create google service: %w", err)
	}
	return &GoogleGateway{svc: svc}, nil
}

// NewGoogleGatewayWithService wraps an already-constructed service.
func NewGoogleGatewayWithService(svc *gcal.Service) *GoogleGateway {
	if svc == nil {
		panic("calendar: google service required")
	}
	return &GoogleGateway{svc: svc}
}

// IsFree lists events in the micro-range and reports true when none overlap.
func (g *GoogleGateway) IsFree(ctx context.Context, calendarID string, start time.Time, duration time.Duration) (bool, error) {
	end := start.Add(duration)

	events, err := g.svc.Events.List(calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		Context(ctx).
		Do()
	if err != nil {
		return false, fmt.Errorf("calendar: list events: %w", err)
	}

	return len(events.Items) == 0, nil
}

// CreateEvent inserts the event and returns its remote id and link.
func (g *GoogleGateway) CreateEvent(ctx context.Context, calendarID string, in EventInput) (*Event, error) {
	body := &gcal.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Start: &gcal.EventDateTime{
			DateTime: in.Start.Format(time.RFC3339),
			TimeZone: in.Timezone,
		},
		End: &gcal.EventDateTime{
			DateTime: in.Start.Add(in.Duration).Format(time.RFC3339),
			TimeZone: in.Timezone,
		},
	}

	created, err := g.svc.Events.Insert(calendarID, body).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: insert event: %w", err)
	}

	return &Event{ID: created.Id, HTMLLink: created.HtmlLink}, nil
}

// DeleteEvent removes the event, treating 404/410 as already deleted.
func (g *GoogleGateway) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	err := g.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 404 || apiErr.Code == 410) {
		return nil
	}
	return fmt.Errorf("calendar: delete event: %w", err)
}
