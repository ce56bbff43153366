package booking

import "errors"

// Expected business outcomes are explicit sentinels so callers must handle
// the negative case instead of swallowing a catch-all failure.
var (
	// ErrNoProfessional means no professional is configured for the
	// requested specialty.
	ErrNoProfessional = errors.New("booking: no professional configured for that specialty")

	// ErrPastTime rejects bookings whose start already passed in the
	// business timezone.
	ErrPastTime = errors.New("booking: start time is in the past")

	// ErrDuplicateBooking guards against double submission: the client
	// already holds an active appointment at that exact start.
	ErrDuplicateBooking = errors.New("booking: client already has an active appointment at that time")

	// ErrNoActiveAppointment means cancel/reschedule had nothing to act on.
	ErrNoActiveAppointment = errors.New("booking: no active upcoming appointment")
)
