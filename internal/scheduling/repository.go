package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookingRequest carries everything the booking transaction needs.
type BookingRequest struct {
	SlotID    uuid.UUID
	PatientID uuid.UUID
	Notes     string
	VisitType string
}

// Repository contains all DB interactions needed by the scheduling services.
// Every mutation of the slots and appointments tables goes through here so the
// booked-flag invariant has a single enforcement point.
type Repository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*User, error)

	// Availability templates
	GetTemplateByDoctor(ctx context.Context, doctorID uuid.UUID) (*AvailabilityTemplate, error)
	SaveTemplate(ctx context.Context, tpl *AvailabilityTemplate) (*AvailabilityTemplate, error)
	ListTemplates(ctx context.Context) ([]AvailabilityTemplate, error)

	// Slot materialization. InsertSlots must skip rows colliding on the
	// (doctor_id, slot_date, start_time) key and report how many were
	// actually inserted.
	InsertSlots(ctx context.Context, slots []Slot) (int, error)
	DeleteUnbookedFutureSlots(ctx context.Context, doctorID uuid.UUID, from time.Time) (int64, error)
	ListFutureSlots(ctx context.Context, doctorID uuid.UUID, from time.Time) ([]Slot, error)
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)

	// BookSlot runs the whole booking transaction: lock the slot row,
	// re-check booked/past/duplicate-day, flip the flag and create the
	// confirmed appointment. All-or-nothing.
	BookSlot(ctx context.Context, req BookingRequest, now time.Time) (*Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)

	// TransitionAppointment atomically moves an appointment from one status
	// to another, optionally releasing its slot in the same transaction.
	// Returns ErrAppointmentFinalized when the row is no longer in `from`.
	TransitionAppointment(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, releaseSlot bool) (*Appointment, error)

	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error)
	ListConfirmedFutureByDoctor(ctx context.Context, doctorID uuid.UUID, from time.Time) ([]AppointmentDetail, error)

	// Maintenance
	DeleteStaleUnbookedSlots(ctx context.Context, before time.Time) (int64, error)
	ListMissedConfirmed(ctx context.Context, before time.Time) ([]Appointment, error)
}
