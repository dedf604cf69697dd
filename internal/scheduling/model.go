package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// User is the slice of the identity collaborator this service consumes:
// id, role and display fields only.
type User struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilityTemplate is a doctor's recurring weekly pattern. It is replaced
// wholesale on every save; each doctor has at most one.
type AvailabilityTemplate struct {
	ID           uuid.UUID
	DoctorID     uuid.UUID
	StartTime    TimeOfDay
	EndTime      TimeOfDay
	DurationMins int
	Weekdays     []time.Weekday
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasWeekday reports whether d is part of the template's active days.
func (t *AvailabilityTemplate) HasWeekday(d time.Weekday) bool {
	for _, w := range t.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// Slot is one discrete bookable interval owned by a doctor. The tuple
// (doctor_id, slot_date, start_time) is unique in storage; materialization
// relies on that key for idempotence.
type Slot struct {
	ID         uuid.UUID
	DoctorID   uuid.UUID
	TemplateID uuid.UUID
	Date       time.Time // day granularity, midnight server-local
	StartTime  TimeOfDay
	EndTime    TimeOfDay
	IsBooked   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StartAt is the slot's concrete start instant.
func (s *Slot) StartAt() time.Time {
	return s.StartTime.At(s.Date)
}

// IsPast reports whether the slot's start has already passed.
func (s *Slot) IsPast(now time.Time) bool {
	return !s.StartAt().After(now)
}

type Appointment struct {
	ID        uuid.UUID
	SlotID    uuid.UUID
	PatientID uuid.UUID
	Status    AppointmentStatus
	Notes     string
	VisitType string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppointmentDetail hydrates an appointment with its slot and the display
// fields of both parties for API responses.
type AppointmentDetail struct {
	Appointment
	Slot    *Slot
	Doctor  *User
	Patient *User
}

// GeneratedSlot is a candidate produced by the generator before it is
// materialized into a Slot row.
type GeneratedSlot struct {
	Date      time.Time
	StartTime TimeOfDay
	EndTime   TimeOfDay
}

// StartOfDay truncates t to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
