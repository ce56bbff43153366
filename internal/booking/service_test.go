package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmoretto/turnero/internal/calendar"
	"github.com/nmoretto/turnero/internal/clients"
	"github.com/nmoretto/turnero/internal/professionals"
)

type memStore struct {
	nextID int64
	rows   []*Appointment
}

func (m *memStore) Create(_ context.Context, clientID, professionalID int64, start time.Time, eventID string) (*Appointment, error) {
	m.nextID++
	a := &Appointment{
		ID:              m.nextID,
		ClientID:        clientID,
		ProfessionalID:  professionalID,
		StartTime:       start,
		Status:          StatusActive,
		CalendarEventID: eventID,
	}
	m.rows = append(m.rows, a)
	return a, nil
}

func (m *memStore) FindActiveAt(_ context.Context, clientID int64, start time.Time) (*Appointment, error) {
	for _, a := range m.rows {
		if a.ClientID == clientID && a.Status == StatusActive && a.StartTime.Equal(start) {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memStore) NextActive(_ context.Context, clientID int64, after time.Time) (*Appointment, error) {
	var best *Appointment
	for _, a := range m.rows {
		if a.ClientID != clientID || a.Status != StatusActive || !a.StartTime.After(after) {
			continue
		}
		if best == nil || a.StartTime.Before(best.StartTime) {
			best = a
		}
	}
	return best, nil
}

func (m *memStore) SetStatus(_ context.Context, id int64, status string) error {
	for _, a := range m.rows {
		if a.ID == id {
			a.Status = status
			return nil
		}
	}
	return fmt.Errorf("no row %d", id)
}

// stubGateway scripts remote behavior. Deleted events are remembered so a
// second delete can emulate the provider's already-gone semantics.
type stubGateway struct {
	createErr  error
	deleteErr  error
	created    []calendar.EventInput
	deleted    []string
	gone       map[string]bool
	nextLink   string
	eventCount int
}

func newStubGateway() *stubGateway {
	return &stubGateway{gone: map[string]bool{}}
}

func (g *stubGateway) IsFree(context.Context, string, time.Time, time.Duration) (bool, error) {
	panic("unused in booking tests")
}

func (g *stubGateway) CreateEvent(_ context.Context, _ string, in calendar.EventInput) (*calendar.Event, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.eventCount++
	g.created = append(g.created, in)
	return &calendar.Event{ID: fmt.Sprintf("evt-%d", g.eventCount), HTMLLink: g.nextLink}, nil
}

func (g *stubGateway) DeleteEvent(_ context.Context, _ string, eventID string) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	// Deleting an event that is already gone succeeds, as the real
	// gateway maps 404/410 to nil.
	g.deleted = append(g.deleted, eventID)
	g.gone[eventID] = true
	return nil
}

type stubProfs struct {
	pool []professionals.Professional
	err  error
}

func (p *stubProfs) ListByType(context.Context, professionals.Type, string) ([]professionals.Professional, error) {
	return p.pool, p.err
}

type recordingMailer struct {
	sent []string
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, _, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

var bookLoc = func() *time.Location {
	loc, err := time.LoadLocation("America/Argentina/Cordoba")
	if err != nil {
		panic(err)
	}
	return loc
}()

func fixedNow() time.Time {
	return time.Date(2026, 9, 1, 8, 0, 0, 0, bookLoc)
}

func testClient() *clients.Client {
	name, phone := "Carla", "+5493511234567"
	return &clients.Client{ID: 7, InstagramID: "ig-7", Name: &name, Phone: &phone}
}

func newTestService(gw *stubGateway, store *memStore, profs *stubProfs, mailer Mailer) *Service {
	s := NewService(gw, store, profs, mailer, bookLoc, nil)
	s.now = fixedNow
	return s
}

func defaultProfs() *stubProfs {
	return &stubProfs{pool: []professionals.Professional{
		{ID: 1, Name: "Juan", Type: professionals.TypeContactologo, CalendarID: "cal-juan"},
		{ID: 2, Name: "Mora", Type: professionals.TypeContactologo, CalendarID: "cal-mora"},
	}}
}

func TestBookCreatesEventBeforeRow(t *testing.T) {
	gw := newStubGateway()
	gw.nextLink = "https://calendar/evt-1"
	store := &memStore{}
	s := newTestService(gw, store, defaultProfs(), nil)

	start := time.Date(2026, 9, 2, 10, 0, 0, 0, bookLoc)
	conf, err := s.Book(context.Background(), testClient(), professionals.TypeContactologo, start)
	require.NoError(t, err)

	assert.Equal(t, "Juan", conf.Professional.Name)
	assert.Equal(t, "https://calendar/evt-1", conf.EventLink)
	assert.Equal(t, StatusActive, conf.Appointment.Status)
	assert.Equal(t, "evt-1", conf.Appointment.CalendarEventID)

	require.Len(t, gw.created, 1)
	assert.Equal(t, "Turno contactologo: Carla (+5493511234567)", gw.created[0].Summary)
	assert.Equal(t, 30*time.Minute, gw.created[0].Duration)
}

func TestBookRejectsPastStart(t *testing.T) {
	gw := newStubGateway()
	store := &memStore{}
	s := newTestService(gw, store, defaultProfs(), nil)

	past := time.Date(2026, 8, 31, 10, 0, 0, 0, bookLoc)
	_, err := s.Book(context.Background(), testClient(), professionals.TypeContactologo, past)
	assert.ErrorIs(t, err, ErrPastTime)
	assert.Empty(t, gw.created, "no remote write for a rejected request")
	assert.Empty(t, store.rows)
}

func TestBookRejectsDuplicateSubmission(t *testing.T) {
	gw := newStubGateway()
	store := &memStore{}
	s := newTestService(gw, store, defaultProfs(), nil)

	start := time.Date(2026, 9, 2, 10, 0, 0, 0, bookLoc)
	_, err := s.Book(context.Background(), testClient(), professionals.TypeContactologo, start)
	require.NoError(t, err)

	_, err = s.Book(context.Background(), testClient(), professionals.TypeContactologo, start)
	assert.ErrorIs(t, err, ErrDuplicateBooking)
	assert.Len(t, gw.created, 1, "duplicate must not reach the calendar")
}

func TestBookRemoteFailureLeavesNoPhantom(t *testing.T) {
	gw := newStubGateway()
	gw.createErr = errors.New("calendar unreachable")
	store := &memStore{}
	s := newTestService(gw, store, defaultProfs(), nil)

	start := time.Date(2026, 9, 2, 10, 0, 0, 0, bookLoc)
	_, err := s.Book(context.Background(), testClient(), professionals.TypeContactologo, start)
	require.Error(t, err)
	assert.Empty(t, store.rows, "no local row without a remote event")
}

func TestBookNoProfessionalForSpecialty(t *testing.T) {
	gw := newStubGateway()
	s := newTestService(gw, &memStore{}, &stubProfs{}, nil)

	start := time.Date(2026, 9, 2, 10, 0, 0, 0, bookLoc)
	_, err := s.Book(context.Background(), testClient(), professionals.TypeBarbero, start)
	assert.ErrorIs(t, err, ErrNoProfessional)
}

func TestBookSendsConfirmationEmail(t *testing.T) {
	gw := newStubGateway()
	mailer := &recordingMailer{}
	s := newTestService(gw, &memStore{}, defaultProfs(), mailer)

	c := testClient()
	email := "carla@example.com"
	c.Email = &email

	start := time.Date(2026, 9, 2, 10, 0, 0, 0, bookLoc)
	_, err := s.Book(context.Background(), c, professionals.TypeContactologo, start)
	require.NoError(t, err)
	assert.Equal(t, []string{"carla@example.com"}, mailer.sent)
}

func TestBookEmailFailureDoesNotFailBooking(t *testing.T) {
	gw := newStubGateway()
	mailer := &recordingMailer{err: errors.New("smtp down")}
	store := &memStore{}
	s := newTestService(gw, store, defaultProfs(), mailer)

	c := testClient()
	email := "carla@example.com"
	c.Email = &email

	start := time.Date(2026, 9, 2, 10, 0, 0, 0, bookLoc)
	_, err := s.Book(context.Background(), c, professionals.TypeContactologo, start)
	require.NoError(t, err)
	require.Len(t, store.rows, 1)
}

func TestCancelDeletesRemoteThenFlipsLocal(t *testing.T) {
	gw := newStubGateway()
	store := &memStore{}
	s := newTestService(gw, store, defaultProfs(), nil)

	start := time.Date(2026, 9, 2, 10, 0, 0, 0, bookLoc)
	_, err := s.Book(context.Background(), testClient(), professionals.TypeContactologo, start)
	require.NoError(t, err)

	appt, err := s.Cancel(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, appt.Status)
	assert.Equal(t, []string{"evt-1"}, gw.deleted)
	assert.Equal(t, StatusCancelled, store.rows[0].Status)
}

func TestCancelIsIdempotentOnRetry(t *testing.T) {
	// First attempt deleted the remote event but died before the local
	// flip. The retry must converge: already-gone delete succeeds and the
	// row is flipped.
	gw := newStubGateway()
	store := &memStore{}
	s := newTestService(gw, store, defaultProfs(), nil)

	start := time.Date(2026, 9, 2, 10, 0, 0, 0, bookLoc)
	_, err := s.Book(context.Background(), testClient(), professionals.TypeContactologo, start)
	require.NoError(t, err)

	require.NoError(t, gw.DeleteEvent(context.Background(), "cal-juan", "evt-1"))
	require.True(t, gw.gone["evt-1"])

	appt, err := s.Cancel(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, appt.Status)
}

func TestCancelRemoteFailureKeepsLocalActive(t *testing.T) {
	gw := newStubGateway()
	store := &memStore{}
	s := newTestService(gw, store, defaultProfs(), nil)

	start := time.Date(2026, 9, 2, 10, 0, 0, 0, bookLoc)
	_, err := s.Book(context.Background(), testClient(), professionals.TypeContactologo, start)
	require.NoError(t, err)

	gw.deleteErr = errors.New("calendar unreachable")
	_, err = s.Cancel(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, StatusActive, store.rows[0].Status,
		"local state must not run ahead of the calendar")
}

func TestCancelWithNothingUpcoming(t *testing.T) {
	gw := newStubGateway()
	s := newTestService(gw, &memStore{}, defaultProfs(), nil)

	_, err := s.Cancel(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNoActiveAppointment)
}

func TestCancelTargetsNearestUpcoming(t *testing.T) {
	gw := newStubGateway()
	store := &memStore{}
	s := newTestService(gw, store, defaultProfs(), nil)

	later := time.Date(2026, 9, 4, 10, 0, 0, 0, bookLoc)
	sooner := time.Date(2026, 9, 2, 10, 0, 0, 0, bookLoc)
	_, err := s.Book(context.Background(), testClient(), professionals.TypeContactologo, later)
	require.NoError(t, err)
	_, err = s.Book(context.Background(), testClient(), professionals.TypeContactologo, sooner)
	require.NoError(t, err)

	appt, err := s.Cancel(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, appt.StartTime.Equal(sooner))
}

func TestRescheduleBooksNewBeforeReleasingOld(t *testing.T) {
	gw := newStubGateway()
	store := &memStore{}
	s := newTestService(gw, store, defaultProfs(), nil)

	oldStart := time.Date(2026, 9, 2, 10, 0, 0, 0, bookLoc)
	_, err := s.Book(context.Background(), testClient(), professionals.TypeContactologo, oldStart)
	require.NoError(t, err)

	newStart := time.Date(2026, 9, 3, 15, 0, 0, 0, bookLoc)
	conf, err := s.Reschedule(context.Background(), testClient(), professionals.TypeContactologo, newStart)
	require.NoError(t, err)

	assert.True(t, conf.Appointment.StartTime.Equal(newStart))
	assert.Equal(t, StatusActive, conf.Appointment.Status)
	assert.Equal(t, StatusSuperseded, store.rows[0].Status)
	assert.Equal(t, []string{"evt-1"}, gw.deleted, "only the old event is torn down")
}

func TestRescheduleFailedBookingKeepsOriginal(t *testing.T) {
	gw := newStubGateway()
	store := &memStore{}
	s := newTestService(gw, store, defaultProfs(), nil)

	oldStart := time.Date(2026, 9, 2, 10, 0, 0, 0, bookLoc)
	_, err := s.Book(context.Background(), testClient(), professionals.TypeContactologo, oldStart)
	require.NoError(t, err)

	gw.createErr = errors.New("calendar unreachable")
	newStart := time.Date(2026, 9, 3, 15, 0, 0, 0, bookLoc)
	_, err = s.Reschedule(context.Background(), testClient(), professionals.TypeContactologo, newStart)
	require.Error(t, err)

	assert.Equal(t, StatusActive, store.rows[0].Status, "original stays active")
	assert.Empty(t, gw.deleted, "old event untouched when the new slot failed")
}

func TestRescheduleWithNothingUpcoming(t *testing.T) {
	gw := newStubGateway()
	s := newTestService(gw, &memStore{}, defaultProfs(), nil)

	newStart := time.Date(2026, 9, 3, 15, 0, 0, 0, bookLoc)
	_, err := s.Reschedule(context.Background(), testClient(), professionals.TypeContactologo, newStart)
	assert.ErrorIs(t, err, ErrNoActiveAppointment)
	assert.Empty(t, gw.created)
}
