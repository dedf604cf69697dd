package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Safwan169/emr-backend/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps scheduling errors onto HTTP statuses: validation 400,
// not-found 404, authorization 403, conflicts 409, everything else 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var vErr *scheduling.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, "invalid_"+vErr.Field, vErr.Message)
		return
	}

	switch {
	case errors.Is(err, scheduling.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, scheduling.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())

	case errors.Is(err, scheduling.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "not_participant", err.Error())
	case errors.Is(err, scheduling.ErrCompleteRequiresActor):
		writeError(w, http.StatusForbidden, "doctor_only_transition", err.Error())
	case errors.Is(err, scheduling.ErrForbiddenListing):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())

	case errors.Is(err, scheduling.ErrSlotAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, scheduling.ErrSlotInPast):
		writeError(w, http.StatusConflict, "slot_in_past", err.Error())
	case errors.Is(err, scheduling.ErrDuplicateDayBooking):
		writeError(w, http.StatusConflict, "duplicate_day_booking", err.Error())
	case errors.Is(err, scheduling.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, scheduling.ErrAppointmentFinalized):
		writeError(w, http.StatusConflict, "appointment_finalized", err.Error())
	case errors.Is(err, scheduling.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
