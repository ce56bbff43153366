package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/nmoretto/turnero/internal/calendar"
	"github.com/nmoretto/turnero/internal/clients"
	"github.com/nmoretto/turnero/internal/professionals"
	"github.com/nmoretto/turnero/pkg/logging"
)

// appointmentStore is the slice of the repository the service needs.
type appointmentStore interface {
	Create(ctx context.Context, clientID, professionalID int64, start time.Time, eventID string) (*Appointment, error)
	FindActiveAt(ctx context.Context, clientID int64, start time.Time) (*Appointment, error)
	NextActive(ctx context.Context, clientID int64, after time.Time) (*Appointment, error)
	SetStatus(ctx context.Context, id int64, status string) error
}

// professionalSource resolves the pool for a specialty.
type professionalSource interface {
	ListByType(ctx context.Context, profType professionals.Type, nameFilter string) ([]professionals.Professional, error)
}

// Mailer sends the optional confirmation email. A nil mailer disables it.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Confirmation is what a successful Book or Reschedule hands back to the
// conversation layer.
type Confirmation struct {
	Appointment  *Appointment
	Professional professionals.Professional
	EventLink    string
}

// Service drives the appointment lifecycle. Ordering is strict: the remote
// calendar event is always written before the local row, and torn down
// before the local row is flipped. The remote calendar is the source of
// truth for occupancy.
type Service struct {
	gateway calendar.Gateway
	store   appointmentStore
	profs   professionalSource
	mailer  Mailer
	logger  *logging.Logger
	loc     *time.Location
	now     func() time.Time
}

// NewService wires the booking service. mailer may be nil.
func NewService(gateway calendar.Gateway, store appointmentStore, profs professionalSource, mailer Mailer, loc *time.Location, logger *logging.Logger) *Service {
	if gateway == nil || store == nil || profs == nil {
		panic("booking: gateway, store and professionals required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		gateway: gateway,
		store:   store,
		profs:   profs,
		mailer:  mailer,
		logger:  logger,
		loc:     loc,
		now:     time.Now,
	}
}

// Book reserves start with the first professional of the given specialty.
// The calendar event is created first; the local row is only written once
// the remote side accepted, so a remote failure leaves no phantom booking.
func (s *Service) Book(ctx context.Context, client *clients.Client, profType professionals.Type, start time.Time) (*Confirmation, error) {
	start = start.In(s.loc)
	if !start.After(s.now().In(s.loc)) {
		return nil, ErrPastTime
	}

	existing, err := s.store.FindActiveAt(ctx, client.ID, start)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateBooking
	}

	pool, err := s.profs.ListByType(ctx, profType, "")
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, ErrNoProfessional
	}
	prof := pool[0]

	event, err := s.gateway.CreateEvent(ctx, prof.CalendarID, calendar.EventInput{
		Start:       start,
		Duration:    profType.AppointmentDuration(),
		Summary:     eventSummary(profType, client),
		Description: fmt.Sprintf("Reservado por Instagram (%s)", client.InstagramID),
		Timezone:    s.loc.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("booking: create calendar event: %w", err)
	}

	appt, err := s.store.Create(ctx, client.ID, prof.ID, start, event.ID)
	if err != nil {
		// The remote event exists but the row does not. Tear the event
		// down so the remote side does not show a ghost reservation.
		if delErr := s.gateway.DeleteEvent(ctx, prof.CalendarID, event.ID); delErr != nil {
			s.logger.Error("orphaned calendar event after insert failure",
				"calendar", prof.CalendarID, "event", event.ID, "error", delErr)
		}
		return nil, err
	}
	appt.CalendarID = prof.CalendarID

	s.logger.Info("appointment booked",
		"client", client.ID, "professional", prof.Name, "start", start)

	s.sendConfirmation(ctx, client, prof, start)

	return &Confirmation{Appointment: appt, Professional: prof, EventLink: event.HTMLLink}, nil
}

// Cancel releases the client's nearest upcoming active appointment. The
// remote delete runs first; deleting an event that is already gone counts
// as success, so retrying a half-finished cancel converges instead of
// erroring.
func (s *Service) Cancel(ctx context.Context, clientID int64) (*Appointment, error) {
	appt, err := s.store.NextActive(ctx, clientID, s.now().In(s.loc))
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, ErrNoActiveAppointment
	}
	if err := s.cancelAppointment(ctx, appt, StatusCancelled); err != nil {
		return nil, err
	}
	return appt, nil
}

// Reschedule moves the client's nearest upcoming appointment to newStart.
// The new slot is booked first; only when that succeeded is the old event
// deleted and the old row marked superseded. A failed booking leaves the
// original appointment untouched.
func (s *Service) Reschedule(ctx context.Context, client *clients.Client, profType professionals.Type, newStart time.Time) (*Confirmation, error) {
	old, err := s.store.NextActive(ctx, client.ID, s.now().In(s.loc))
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, ErrNoActiveAppointment
	}

	conf, err := s.Book(ctx, client, profType, newStart)
	if err != nil {
		return nil, err
	}

	if err := s.cancelAppointment(ctx, old, StatusSuperseded); err != nil {
		// The new slot is held either way; the stale event is logged for
		// manual cleanup rather than failing the move the client asked for.
		s.logger.Error("failed to release superseded appointment",
			"appointment", old.ID, "event", old.CalendarEventID, "error", err)
	}
	return conf, nil
}

func (s *Service) cancelAppointment(ctx context.Context, appt *Appointment, status string) error {
	if err := s.gateway.DeleteEvent(ctx, appt.CalendarID, appt.CalendarEventID); err != nil {
		return fmt.Errorf("booking: delete calendar event: %w", err)
	}
	if err := s.store.SetStatus(ctx, appt.ID, status); err != nil {
		return err
	}
	appt.Status = status
	s.logger.Info("appointment released",
		"appointment", appt.ID, "status", status)
	return nil
}

// sendConfirmation is best effort: email failures never fail a booking that
// already exists on the calendar.
func (s *Service) sendConfirmation(ctx context.Context, client *clients.Client, prof professionals.Professional, start time.Time) {
	if s.mailer == nil || client.Email == nil || *client.Email == "" {
		return
	}
	name := ""
	if client.Name != nil {
		name = *client.Name
	}
	body := fmt.Sprintf("Hola %s! Tu turno con %s quedó confirmado para el %s a las %s.",
		name, prof.Name, start.Format("02/01/2006"), start.Format("15:04"))
	if err := s.mailer.Send(ctx, *client.Email, "Turno confirmado", body); err != nil {
		s.logger.Warn("confirmation email failed", "client", client.ID, "error", err)
	}
}

func eventSummary(profType professionals.Type, client *clients.Client) string {
	name, phone := "sin nombre", "sin teléfono"
	if client.Name != nil && *client.Name != "" {
		name = *client.Name
	}
	if client.Phone != nil && *client.Phone != "" {
		phone = *client.Phone
	}
	return fmt.Sprintf("Turno %s: %s (%s)", profType, name, phone)
}
