package professionals

import "time"

// Type classifies a bookable professional and determines the default
// appointment duration for their slots.
type Type string

const (
	TypeOptico       Type = "optico"
	TypeContactologo Type = "contactologo"
	TypeBarbero      Type = "barbero"
)

// AppointmentDuration returns the fixed slot length for this professional type.
func (t Type) AppointmentDuration() time.Duration {
	switch t {
	case TypeOptico:
		return 20 * time.Minute
	case TypeContactologo:
		return 30 * time.Minute
	default:
		return 30 * time.Minute
	}
}

// Professional is static reference data seeded at setup: a bookable entity
// backed by one remote calendar.
type Professional struct {
	ID         int64
	Name       string
	Type       Type
	CalendarID string
}
