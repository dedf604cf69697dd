package scheduling

import (
	"errors"
	"fmt"
)

// Not-found conditions, returned by repositories.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrTemplateNotFound    = errors.New("availability not set")
)

// Conflict conditions. None of these leave partial state behind; the enclosing
// transaction rolls back.
var (
	ErrSlotAlreadyBooked       = errors.New("slot is already booked")
	ErrSlotInPast              = errors.New("cannot book a slot in the past")
	ErrDuplicateDayBooking     = errors.New("patient already has a confirmed appointment with this doctor on this day")
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrAppointmentFinalized    = errors.New("appointment is already completed or cancelled")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// Authorization conditions.
var (
	ErrNotParticipant        = errors.New("actor is neither the doctor nor the patient of this appointment")
	ErrCompleteRequiresActor = errors.New("only the doctor can mark an appointment completed")
	ErrForbiddenListing      = errors.New("actor may only view their own appointments")
)

// ValidationError reports a malformed field in client input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidField(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
