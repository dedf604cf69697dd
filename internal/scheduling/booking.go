package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	redisclient "github.com/Safwan169/emr-backend/internal/redis"
)

const maxNotesLen = 500

// BookAppointmentInput identifies the slot, the patient and the doctor the
// client believes owns the slot. The doctor id is cross-checked against the
// slot so a stale client cannot book against the wrong calendar.
type BookAppointmentInput struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	SlotID    uuid.UUID
	Notes     string
	VisitType string
}

// BookAppointment converts an available slot into a confirmed appointment.
// The per-slot redis lock sheds concurrent attempts early; correctness does
// not depend on it. The row lock inside Repository.BookSlot is what
// guarantees one winner per slot.
func (s *Service) BookAppointment(ctx context.Context, in BookAppointmentInput) (*AppointmentDetail, error) {
	if len(in.Notes) > maxNotesLen {
		return nil, invalidField("notes", "cannot exceed %d characters", maxNotesLen)
	}

	if _, err := s.repo.GetPatientByID(ctx, in.PatientID); err != nil {
		return nil, err
	}

	slot, err := s.repo.GetSlotByID(ctx, in.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.DoctorID != in.DoctorID {
		return nil, invalidField("doctor_id", "slot does not belong to this doctor")
	}

	var appt *Appointment
	err = s.locker.WithSlotLock(ctx, in.SlotID, func(lockCtx context.Context) error {
		var bookErr error
		appt, bookErr = s.repo.BookSlot(lockCtx, BookingRequest{
			SlotID:    in.SlotID,
			PatientID: in.PatientID,
			Notes:     in.Notes,
			VisitType: in.VisitType,
		}, s.now())
		return bookErr
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	detail, err := s.repo.GetAppointmentDetail(ctx, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("load booked appointment: %w", err)
	}
	return detail, nil
}

// UpdateAppointmentStatus applies a lifecycle transition on behalf of actorID.
// Legal transitions are confirmed → cancelled (either party) and confirmed →
// completed (the doctor only); completed and cancelled are terminal.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, appointmentID uuid.UUID, newStatus AppointmentStatus, actorID uuid.UUID) (*Appointment, error) {
	det, err := s.repo.GetAppointmentDetail(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	isDoctor := det.Slot.DoctorID == actorID
	isPatient := det.PatientID == actorID
	if !isDoctor && !isPatient {
		return nil, ErrNotParticipant
	}

	if det.Status.IsTerminal() {
		return nil, ErrAppointmentFinalized
	}

	releaseSlot := false
	switch newStatus {
	case StatusCancelled:
		// A past slot stays booked: cancelling yesterday's appointment must
		// not resurrect a historical slot for rebooking.
		releaseSlot = !det.Slot.IsPast(s.now())
	case StatusCompleted:
		if !isDoctor {
			return nil, ErrCompleteRequiresActor
		}
	default:
		return nil, ErrInvalidStatusTransition
	}

	return s.repo.TransitionAppointment(ctx, appointmentID, StatusConfirmed, newStatus, releaseSlot)
}

// GetAppointment returns a fully hydrated appointment visible to one of its
// participants.
func (s *Service) GetAppointment(ctx context.Context, appointmentID, actorID uuid.UUID) (*AppointmentDetail, error) {
	det, err := s.repo.GetAppointmentDetail(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if det.Slot.DoctorID != actorID && det.PatientID != actorID {
		return nil, ErrNotParticipant
	}
	return det, nil
}

// GetPatientAppointments lists a patient's appointments. Patients may only
// read their own; doctors may read any patient's.
func (s *Service) GetPatientAppointments(ctx context.Context, patientID, actorID uuid.UUID) ([]AppointmentDetail, error) {
	actor, err := s.repo.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role == RolePatient && actorID != patientID {
		return nil, ErrForbiddenListing
	}

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListAppointmentsByPatient(ctx, patientID)
}

// GetDoctorAppointments lists a doctor's appointments; only that doctor may
// read them.
func (s *Service) GetDoctorAppointments(ctx context.Context, doctorID, actorID uuid.UUID) ([]AppointmentDetail, error) {
	actor, err := s.repo.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != RoleDoctor || actorID != doctorID {
		return nil, ErrForbiddenListing
	}

	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListAppointmentsByDoctor(ctx, doctorID)
}
