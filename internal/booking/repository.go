package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Appointment statuses. There is no active -> active transition: a
// reschedule cancels-and-creates, it never mutates a remote event in place.
const (
	StatusActive     = "active"
	StatusCancelled  = "cancelled"
	StatusSuperseded = "superseded"
	StatusCompleted  = "completed"
)

// Appointment is the local record of one reservation. An active appointment
// corresponds 1:1 to a remote calendar event; it is only written after the
// remote create succeeded.
type Appointment struct {
	ID              int64
	ClientID        int64
	ProfessionalID  int64
	StartTime       time.Time
	Status          string
	CalendarEventID string
	// CalendarID is the professional's backing calendar, joined in on
	// reads so cancel/reschedule can address the remote event.
	CalendarID string
	CreatedAt  time.Time
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists appointments.
type Repository struct {
	db dbtx
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting pgxmock for tests.
func NewRepositoryWithDB(db dbtx) *Repository {
	return &Repository{db: db}
}

// Create inserts an active appointment with its remote event id.
func (r *Repository) Create(ctx context.Context, clientID, professionalID int64, start time.Time, eventID string) (*Appointment, error) {
	var a Appointment
	err := r.db.QueryRow(ctx, `
		INSERT INTO appointments (client_id, professional_id, start_time, status, calendar_event_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, client_id, professional_id, start_time, status, calendar_event_id, created_at`,
		clientID, professionalID, start, StatusActive, eventID).
		Scan(&a.ID, &a.ClientID, &a.ProfessionalID, &a.StartTime, &a.Status, &a.CalendarEventID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("booking: insert appointment: %w", err)
	}
	return &a, nil
}

// FindActiveAt returns the client's active appointment starting exactly at
// start, or nil. Used as the duplicate-submission guard.
func (r *Repository) FindActiveAt(ctx context.Context, clientID int64, start time.Time) (*Appointment, error) {
	a, err := r.scanOne(ctx, `
		SELECT a.id, a.client_id, a.professional_id, a.start_time, a.status, a.calendar_event_id, p.calendar_id, a.created_at
		FROM appointments a
		JOIN professionals p ON p.id = a.professional_id
		WHERE a.client_id = $1 AND a.status = $2 AND a.start_time = $3`,
		clientID, StatusActive, start)
	if err != nil {
		return nil, fmt.Errorf("booking: find active at: %w", err)
	}
	return a, nil
}

// NextActive returns the client's nearest upcoming active appointment, or
// nil. When several exist the nearest one is the implicit target.
func (r *Repository) NextActive(ctx context.Context, clientID int64, after time.Time) (*Appointment, error) {
	a, err := r.scanOne(ctx, `
		SELECT a.id, a.client_id, a.professional_id, a.start_time, a.status, a.calendar_event_id, p.calendar_id, a.created_at
		FROM appointments a
		JOIN professionals p ON p.id = a.professional_id
		WHERE a.client_id = $1 AND a.status = $2 AND a.start_time > $3
		ORDER BY a.start_time ASC
		LIMIT 1`,
		clientID, StatusActive, after)
	if err != nil {
		return nil, fmt.Errorf("booking: next active: %w", err)
	}
	return a, nil
}

// SetStatus flips an appointment's lifecycle state.
func (r *Repository) SetStatus(ctx context.Context, id int64, status string) error {
	_, err := r.db.Exec(ctx, `UPDATE appointments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("booking: set status: %w", err)
	}
	return nil
}

func (r *Repository) scanOne(ctx context.Context, query string, args ...any) (*Appointment, error) {
	var a Appointment
	err := r.db.QueryRow(ctx, query, args...).
		Scan(&a.ID, &a.ClientID, &a.ProfessionalID, &a.StartTime, &a.Status, &a.CalendarEventID, &a.CalendarID, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
